package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

type chromedpSession struct {
	ctx         context.Context // chromedp browser context owning the tab
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
}

func openChromedp(ctx context.Context, opts Options) (*chromedpSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if opts.Endpoint != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), opts.Endpoint)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and the tab.
	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(opts.Viewport.Width), int64(opts.Viewport.Height), 1, false),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &chromedpSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        opts,
	}, nil
}

// run executes actions on the tab, bounded by the per-command timeout and
// abandoned early when ctx is done.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *chromedpSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = n
	}
	return elements, nil
}

func (s *chromedpSession) Text(ctx context.Context, el Element) (string, error) {
	node, ok := el.(*cdp.Node)
	if !ok {
		return "", handleError(DriverChromedp, el)
	}

	// chromedp.Text waits for visibility, which never happens for hidden leaves
	var text string
	if err := s.run(ctx, callOn(node, elementFunction(RenderedTextScript), &text)); err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

func (s *chromedpSession) ExecuteScript(ctx context.Context, el Element, script string, args ...any) error {
	node, ok := el.(*cdp.Node)
	if !ok {
		return handleError(DriverChromedp, el)
	}

	if err := s.run(ctx, callOn(node, elementFunction(script), nil, args...)); err != nil {
		return fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return nil
}

// callOn resolves node to a remote object and calls fn with it as `this`.
func callOn(node *cdp.Node, fn string, res any, args ...any) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		onElement := func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}
		return chromedp.CallFunctionOn(fn, res, onElement, args...).Do(ctx)
	})
}

func (s *chromedpSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
