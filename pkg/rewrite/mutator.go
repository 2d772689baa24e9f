package rewrite

import (
	"context"

	"github.com/eiz/chatgpt-wd/pkg/browser"
)

// Mutator writes a reply into the element of a task.
type Mutator interface {
	Apply(ctx context.Context, task Task, text string) error
}

// MutatorFunc adapts a plain function to Mutator.
type MutatorFunc func(ctx context.Context, task Task, text string) error

// Apply calls f.
func (f MutatorFunc) Apply(ctx context.Context, task Task, text string) error {
	return f(ctx, task, text)
}

// SessionMutator replaces the rendered text of an element by running a
// script in the session. The text is passed as a script argument, unchanged.
type SessionMutator struct {
	session browser.Session
	script  string
}

// NewSessionMutator returns a mutator using browser.SetInnerTextScript.
func NewSessionMutator(session browser.Session) *SessionMutator {
	return &SessionMutator{session: session, script: browser.SetInnerTextScript}
}

// Apply sets the element's text. Errors are returned as *MutationError.
func (m *SessionMutator) Apply(ctx context.Context, task Task, text string) error {
	if err := m.session.ExecuteScript(ctx, task.Element, m.script, text); err != nil {
		return &MutationError{TaskID: task.ID, Err: err}
	}
	return nil
}
