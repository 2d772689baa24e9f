package browser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// playwrightSession encapsulates a Playwright browser with its context and page.
type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func openPlaywright(ctx context.Context, opts Options) (*playwrightSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Discard driver output so it does not interleave with progress output
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browser playwright.Browser
	if opts.Endpoint != "" {
		browser, err = pw.Chromium.ConnectOverCDP(opts.Endpoint)
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
		})
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
	}, nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitUntil := playwright.WaitUntilState("load")
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handles, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	elements := make([]Element, len(handles))
	for i, h := range handles {
		elements[i] = h
	}
	return elements, nil
}

func (s *playwrightSession) Text(ctx context.Context, el Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h, ok := el.(playwright.ElementHandle)
	if !ok {
		return "", handleError(DriverPlaywright, el)
	}

	res, err := h.Evaluate(elementArgFunction(RenderedTextScript), []any{})
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	text, _ := res.(string)
	return text, nil
}

func (s *playwrightSession) ExecuteScript(ctx context.Context, el Element, script string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, ok := el.(playwright.ElementHandle)
	if !ok {
		return handleError(DriverPlaywright, el)
	}

	if args == nil {
		args = []any{}
	}
	if _, err := h.Evaluate(elementArgFunction(script), args); err != nil {
		return fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return nil
}

func (s *playwrightSession) Close() error {
	var errs []error

	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}

	return errors.Join(errs...)
}
