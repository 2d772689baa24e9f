package browser

import (
	"context"
	"fmt"
	"time"
)

// Element is an opaque handle to a DOM element. It belongs to the Session
// that returned it and is only meaningful when passed back to that Session.
type Element any

// Session is a loaded browser page the rewrite pipeline operates on.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// FindAll returns every element matching selector. Selectors starting
	// with "//" are XPath expressions.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Text returns the rendered text of el.
	Text(ctx context.Context, el Element) (string, error)

	// ExecuteScript calls the JavaScript function expression script with el
	// followed by args.
	ExecuteScript(ctx context.Context, el Element, script string, args ...any) error

	// Close releases the page and, when the session launched it, the browser.
	Close() error
}

// LeafTextSelector matches body elements that carry text and have no element
// children. Rewriting only leaves keeps nested markup intact. Containers whose
// text is never rendered are excluded.
const LeafTextSelector = "//body//*[text() and not(*)]" +
	"[not(self::script or self::style or self::noscript or self::template)]"

// RenderedTextScript returns the text an element displays, or "" when the
// element is not rendered.
const RenderedTextScript = "(el) => (typeof el.checkVisibility === 'function' && !el.checkVisibility()) ? '' : el.innerText"

// SetInnerTextScript replaces an element's rendered text with its argument.
const SetInnerTextScript = "(el, text) => { el.innerText = text; }"

// Driver names a Session backend.
type Driver string

const (
	// DriverPlaywright uses playwright-go (default)
	DriverPlaywright Driver = "playwright"

	// DriverRod uses go-rod
	DriverRod Driver = "rod"

	// DriverChromedp uses chromedp
	DriverChromedp Driver = "chromedp"
)

// Drivers lists the supported backends.
var Drivers = []Driver{DriverPlaywright, DriverRod, DriverChromedp}

// Options configures a new browser session.
type Options struct {
	// Driver selects the backend. Empty means DriverPlaywright.
	Driver Driver

	// Endpoint attaches to an already running browser instead of launching
	// one: a CDP URL for playwright and chromedp, a control URL for rod.
	Endpoint string

	// Headless controls whether a launched browser runs without a window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// Timeout bounds each browser command (0 means DefaultTimeout)
	Timeout time.Duration

	// SkipInstall skips Playwright's driver and browser download step
	SkipInstall bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for sessions
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// withDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverPlaywright
	}
	if o.Viewport == nil {
		o.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// ParseDriver validates a driver name.
func ParseDriver(name string) (Driver, error) {
	if name == "" {
		return DriverPlaywright, nil
	}
	for _, d := range Drivers {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown browser driver %q (valid: playwright, rod, chromedp)", name)
}

// Open starts a session with the configured backend.
func Open(ctx context.Context, opts Options) (Session, error) {
	opts = opts.withDefaults()

	var (
		s   Session
		err error
	)
	switch opts.Driver {
	case DriverPlaywright:
		s, err = openPlaywright(ctx, opts)
	case DriverRod:
		s, err = openRod(ctx, opts)
	case DriverChromedp:
		s, err = openChromedp(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
	if err != nil {
		// Avoid handing back a typed nil inside the interface
		return nil, err
	}
	return s, nil
}

// elementFunction wraps script so it can be invoked with the element bound
// to `this`, as CDP's Runtime.callFunctionOn does.
func elementFunction(script string) string {
	return "function(...args) { return (" + script + ")(this, ...args); }"
}

// elementArgFunction wraps script for evaluators that pass the element as the
// first argument and a single extra argument holding the argument list.
func elementArgFunction(script string) string {
	return "(el, args) => (" + script + ")(el, ...args)"
}

// handleError reports a handle that came from a different backend.
func handleError(driver Driver, el Element) error {
	return fmt.Errorf("%s: unexpected element handle type %T", driver, el)
}
