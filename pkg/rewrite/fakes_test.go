package rewrite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eiz/chatgpt-wd/pkg/browser"
	"github.com/eiz/chatgpt-wd/pkg/llm"
)

// fakeElement is the element handle handed out by fakeSession
type fakeElement struct {
	id      int
	text    string
	hidden  bool
	readErr error
}

// fakeSession is an in-memory page. It records the highest number of
// ExecuteScript calls observed in flight at once.
type fakeSession struct {
	mu       sync.Mutex
	elements []*fakeElement
	findErr  error
	selector string
	execErr  func(el *fakeElement) error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	execCalls   atomic.Int32
	scripts     []string
}

var _ browser.Session = (*fakeSession)(nil)

func newFakeSession(texts ...string) *fakeSession {
	s := &fakeSession{}
	for i, t := range texts {
		s.elements = append(s.elements, &fakeElement{id: i, text: t})
	}
	return s
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error { return nil }

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.selector = selector
	out := make([]browser.Element, len(s.elements))
	for i, el := range s.elements {
		out[i] = el
	}
	return out, nil
}

func (s *fakeSession) Text(ctx context.Context, el browser.Element) (string, error) {
	fe, ok := el.(*fakeElement)
	if !ok {
		return "", errors.New("foreign element")
	}
	if fe.readErr != nil {
		return "", fe.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fe.hidden {
		return "", nil
	}
	return fe.text, nil
}

func (s *fakeSession) ExecuteScript(ctx context.Context, el browser.Element, script string, args ...any) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	s.execCalls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	fe, ok := el.(*fakeElement)
	if !ok {
		return errors.New("foreign element")
	}
	if s.execErr != nil {
		if err := s.execErr(fe); err != nil {
			return err
		}
	}
	if len(args) != 1 {
		return fmt.Errorf("expected one argument, got %d", len(args))
	}
	text, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("expected string argument, got %T", args[0])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, script)
	fe.text = text
	return nil
}

func (s *fakeSession) Close() error { return nil }

// textOf returns the current text of element i
func (s *fakeSession) textOf(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements[i].text
}

// tasksFor snapshots every element of s into a task
func tasksFor(s *fakeSession) []Task {
	tasks := make([]Task, len(s.elements))
	for i, el := range s.elements {
		tasks[i] = Task{ID: i, Element: el, Text: el.text}
	}
	return tasks
}

// fakeCompleter answers with reply(text) after delay and tracks how many
// calls overlap.
type fakeCompleter struct {
	reply func(text string) (string, error)
	delay time.Duration

	mu     sync.Mutex
	order  []string
	active atomic.Int32
	peak   atomic.Int32
	calls  atomic.Int32
}

func (c *fakeCompleter) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	c.calls.Add(1)

	text := req.Messages[len(req.Messages)-1].Content
	c.mu.Lock()
	c.order = append(c.order, text)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out, err := c.reply(text)
	if err != nil {
		return nil, err
	}
	return &llm.Result{Text: out, Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14}}, nil
}

func (c *fakeCompleter) calledWith() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// recordingSink keeps every report
type recordingSink struct {
	mu      sync.Mutex
	reports []sinkReport
}

type sinkReport struct {
	task Task
	err  error
}

func (s *recordingSink) Report(task Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, sinkReport{task: task, err: err})
}

func (s *recordingSink) all() []sinkReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkReport(nil), s.reports...)
}

func pirate(text string) (string, error) {
	return "arr " + text, nil
}
