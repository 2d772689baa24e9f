package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type rodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher // nil when attached to an existing browser
	timeout  time.Duration
}

func openRod(ctx context.Context, opts Options) (*rodSession, error) {
	s := &rodSession{timeout: opts.Timeout}

	controlURL := opts.Endpoint
	if controlURL == "" {
		s.launcher = launcher.New().Headless(opts.Headless)
		url, err := s.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = url
	}

	if err := ctx.Err(); err != nil {
		s.cleanupLauncher()
		return nil, err
	}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = s.browser.Close()
		s.cleanupLauncher()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	viewport := proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Viewport.Width,
		Height:            opts.Viewport.Height,
		DeviceScaleFactor: 1,
	}
	if err := page.SetViewport(&viewport); err != nil {
		_ = s.browser.Close()
		s.cleanupLauncher()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	s.page = page
	return s, nil
}

// commandContext bounds one browser command by the per-command timeout.
func (s *rodSession) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *rodSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	found, err := s.page.Context(ctx).ElementsX(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	elements := make([]Element, len(found))
	for i, el := range found {
		elements[i] = el
	}
	return elements, nil
}

func (s *rodSession) Text(ctx context.Context, el Element) (string, error) {
	re, ok := el.(*rod.Element)
	if !ok {
		return "", handleError(DriverRod, el)
	}

	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	res, err := re.Context(ctx).Eval(elementFunction(RenderedTextScript))
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return res.Value.Str(), nil
}

func (s *rodSession) ExecuteScript(ctx context.Context, el Element, script string, args ...any) error {
	re, ok := el.(*rod.Element)
	if !ok {
		return handleError(DriverRod, el)
	}

	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	if _, err := re.Context(ctx).Eval(elementFunction(script), args...); err != nil {
		return fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return nil
}

func (s *rodSession) Close() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	// Only close a browser this session launched; an attached one belongs to
	// whoever started it.
	if s.launcher != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		s.cleanupLauncher()
	}
	return errors.Join(errs...)
}

func (s *rodSession) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}
