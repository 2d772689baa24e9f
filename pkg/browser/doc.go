// Package browser provides the automation session the rewrite pipeline
// drives: loading a page, locating elements, reading their text and running
// scripts against them.
//
// # Backends
//
// Three interchangeable drivers implement Session:
//
//   - playwright (default): Playwright's bundled Chromium, or an existing
//     browser reached over CDP when an endpoint is configured
//   - rod: go-rod, launching a local Chrome or connecting to a control URL
//   - chromedp: chromedp, with an exec allocator or a remote allocator
//
// # Concurrency
//
// A Session wraps one page of one browser. Callers should treat it as
// accepting one command at a time; the rewrite dispatcher funnels every
// mutation through a single writer for that reason.
//
// # Scripts
//
// ExecuteScript takes a JavaScript function expression that receives the
// target element as its first argument followed by the supplied arguments:
//
//	err := session.ExecuteScript(ctx, el, "(el, text) => { el.innerText = text; }", "Ahoy")
//
// Each backend adapts that convention to its own evaluation primitive.
//
// # Example Usage
//
//	session, err := browser.Open(ctx, browser.Options{Driver: browser.DriverPlaywright, Headless: true})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	if err := session.Navigate(ctx, "https://example.com"); err != nil {
//	    return err
//	}
//	elements, err := session.FindAll(ctx, browser.LeafTextSelector)
package browser
