package rewrite

import "github.com/eiz/chatgpt-wd/pkg/browser"

// Task pairs one page element with the text it held when it was collected.
// Text is never refreshed from the live page.
type Task struct {
	ID      int
	Element browser.Element
	Text    string
}

// Outcome is the result of one task's pipeline. Err is nil on success, in
// which case Text is the value written into the element.
type Outcome struct {
	TaskID int
	Source string
	Text   string
	Err    error
}

// OK reports whether the task's element was rewritten.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report holds one Outcome per dispatched task, indexed like the input.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the number of rewritten elements.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of tasks that ended in an error.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Failures returns the failed outcomes in task order.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}
