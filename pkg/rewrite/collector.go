package rewrite

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/eiz/chatgpt-wd/pkg/browser"
	"github.com/eiz/chatgpt-wd/pkg/logging"
)

// Collector turns the leaf text elements of a loaded page into Tasks.
type Collector struct {
	Session browser.Session

	// Selector is the XPath used to find candidates. Empty means
	// browser.LeafTextSelector.
	Selector string

	// MinLength is the shortest text, in code points after trimming
	// surrounding whitespace, that becomes a task.
	MinLength int

	// Filter, if set, drops texts it does not allow.
	Filter Filter

	// OnCandidate, if set, is called for every emitted task before Collect
	// returns.
	OnCandidate func(Task)

	Logger *logging.Logger
}

// Collect queries the session and snapshots every qualifying element. A
// failed query is returned as a *SetupError. An element whose text cannot be
// read is skipped.
func (c *Collector) Collect(ctx context.Context) ([]Task, error) {
	selector := c.Selector
	if selector == "" {
		selector = browser.LeafTextSelector
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	elements, err := c.Session.FindAll(ctx, selector)
	if err != nil {
		return nil, &SetupError{Op: "query " + selector, Err: err}
	}
	logger.Debugf("selector %s matched %d elements", selector, len(elements))

	tasks := make([]Task, 0, len(elements))
	for _, el := range elements {
		text, err := c.Session.Text(ctx, el)
		if err != nil {
			logger.Warnf("skipping element: failed to read text: %v", err)
			continue
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" || utf8.RuneCountInString(trimmed) < c.MinLength {
			continue
		}
		if c.Filter != nil && !c.Filter.Allow(text) {
			logger.Debugf("excluded by filter: %q", text)
			continue
		}

		task := Task{ID: len(tasks), Element: el, Text: text}
		tasks = append(tasks, task)
		if c.OnCandidate != nil {
			c.OnCandidate(task)
		}
	}

	logger.Infof("collected %d tasks from %d elements", len(tasks), len(elements))
	return tasks, nil
}
