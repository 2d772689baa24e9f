package rewrite

import (
	"unicode/utf8"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/eiz/chatgpt-wd/pkg/logging"
)

// maxSourceLen bounds how much of a task's text is repeated in error logs
const maxSourceLen = 80

// ErrorSink receives every failed task. Implementations must be safe for
// concurrent use and must not block for long.
type ErrorSink interface {
	Report(task Task, err error)
}

// ErrorSinkFunc adapts a plain function to ErrorSink.
type ErrorSinkFunc func(task Task, err error)

// Report calls f.
func (f ErrorSinkFunc) Report(task Task, err error) {
	f(task, err)
}

// Tee fans every report out to each sink in order. A sink that panics does
// not stop the sinks after it.
func Tee(sinks ...ErrorSink) ErrorSink {
	return ErrorSinkFunc(func(task Task, err error) {
		for _, s := range sinks {
			reportSafely(s, task, err)
		}
	})
}

func reportSafely(s ErrorSink, task Task, err error) {
	defer func() { _ = recover() }()
	s.Report(task, err)
}

// LogSink writes one structured error entry per failed task.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Report logs the task, a prefix of its source text and the error. Service
// errors also log the status code and raw body.
func (s *LogSink) Report(task Task, err error) {
	kv := []interface{}{"task", task.ID, "source", Truncate(task.Text, maxSourceLen), "error", err.Error()}
	if se, ok := llm.IsServiceError(err); ok {
		kv = append(kv, "status", se.StatusCode, "body", se.Body)
	}
	s.logger.Errorw("rewrite failed", kv...)
}

// Truncate shortens s to at most n code points, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
