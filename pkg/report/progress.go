// Package report prints operator-facing progress for a rewrite run.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/eiz/chatgpt-wd/pkg/rewrite"
)

// Level represents the console verbosity level
type Level int

const (
	// LevelQuiet shows only errors, warnings and the final summary
	LevelQuiet Level = iota
	// LevelNormal shows collected candidates and progress (default)
	LevelNormal
	// LevelVerbose also shows every rewritten text
	LevelVerbose
	// LevelDebug shows all internal details for debugging
	LevelDebug
)

// ParseLevel maps a verbosity name to a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "quiet":
		return LevelQuiet, nil
	case "", "normal":
		return LevelNormal, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelNormal, fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", name)
}

// snippetLen bounds texts shown below verbose level
const snippetLen = 72

// Progress writes styled progress lines. It is safe for concurrent use and
// doubles as a rewrite.ErrorSink.
type Progress struct {
	level  Level
	writer io.Writer
	mu     sync.Mutex

	header  lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style

	startTime time.Time
	done      int
	total     int
}

var _ rewrite.ErrorSink = (*Progress)(nil)

// NewProgressTo creates a progress printer writing to w. Colors are only
// emitted when w is a terminal.
func NewProgressTo(w io.Writer, level Level) *Progress {
	r := lipgloss.NewRenderer(w)
	return &Progress{
		level:     level,
		writer:    w,
		header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		success:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		info:      r.NewStyle().Foreground(lipgloss.Color("217")),
		warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		failure:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		startTime: time.Now(),
	}
}

func (p *Progress) println(level Level, style lipgloss.Style, line string) {
	if p.level < level {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.writer, style.Render(line))
}

// Header prints a prominent header message
func (p *Progress) Header(message string) {
	rule := strings.Repeat("=", 70)
	p.println(LevelNormal, p.header, rule+"\n  "+message+"\n"+rule)
}

// Infof prints an informational message
func (p *Progress) Infof(format string, args ...interface{}) {
	p.println(LevelNormal, p.info, fmt.Sprintf(format, args...))
}

// Warningf prints a warning message
func (p *Progress) Warningf(format string, args ...interface{}) {
	p.println(LevelQuiet, p.warning, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (p *Progress) Errorf(format string, args ...interface{}) {
	p.println(LevelQuiet, p.failure, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detailed information (only in verbose mode)
func (p *Progress) Verbosef(format string, args ...interface{}) {
	p.println(LevelVerbose, p.muted, "→ "+fmt.Sprintf(format, args...))
}

// Debugf prints debug information (only in debug mode)
func (p *Progress) Debugf(format string, args ...interface{}) {
	p.println(LevelDebug, p.muted, "[DEBUG] "+fmt.Sprintf(format, args...))
}

// Candidate prints a collected text before dispatch starts
func (p *Progress) Candidate(task rewrite.Task) {
	p.mu.Lock()
	p.total++
	p.mu.Unlock()

	text := strings.TrimSpace(task.Text)
	if p.level < LevelVerbose {
		text = rewrite.Truncate(oneLine(text), snippetLen)
	}
	p.println(LevelNormal, p.muted, fmt.Sprintf("  • [%d] %s", task.ID, text))
}

// Outcome records a finished task. Successful rewrites are shown in verbose
// mode; failures are printed by Report.
func (p *Progress) Outcome(o rewrite.Outcome) {
	p.mu.Lock()
	p.done++
	done, total := p.done, p.total
	p.mu.Unlock()

	if o.OK() {
		p.println(LevelVerbose, p.info, fmt.Sprintf("  ✓ [%d/%d] task %d: %s", done, total, o.TaskID, strings.TrimSpace(o.Text)))
		return
	}
	p.println(LevelDebug, p.muted, fmt.Sprintf("  ✗ [%d/%d] task %d", done, total, o.TaskID))
}

// Report prints a failed task. It implements rewrite.ErrorSink.
func (p *Progress) Report(task rewrite.Task, err error) {
	msg := err.Error()
	if se, ok := llm.IsServiceError(err); ok {
		msg = fmt.Sprintf("service returned %d: %s", se.StatusCode, strings.TrimSpace(se.Body))
	}
	p.Errorf("task %d (%q): %s", task.ID, rewrite.Truncate(oneLine(task.Text), snippetLen/2), msg)
}

// Summary prints the final tally. It is shown even in quiet mode.
func (p *Progress) Summary(r *rewrite.Report) {
	elapsed := time.Since(p.startTime).Round(time.Millisecond)
	line := fmt.Sprintf("%d rewritten, %d failed in %s", r.Succeeded(), r.Failed(), elapsed)
	if r.Failed() > 0 {
		p.println(LevelQuiet, p.warning, line)
		return
	}
	p.println(LevelQuiet, p.success, "✓ "+line)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
