package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/eiz/chatgpt-wd/pkg/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{
		"quiet": LevelQuiet, "normal": LevelNormal, "": LevelNormal, "VERBOSE": LevelVerbose, "debug": LevelDebug,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestProgress_QuietHidesProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTo(&buf, LevelQuiet)

	p.Header("chatgpt-wd")
	p.Infof("navigating")
	p.Candidate(rewrite.Task{ID: 0, Text: "Welcome to the page"})
	p.Verbosef("hidden")
	assert.Empty(t, buf.String())

	p.Warningf("careful")
	p.Errorf("broken")
	out := buf.String()
	assert.Contains(t, out, "⚠ Warning: careful")
	assert.Contains(t, out, "✗ Error: broken")
}

func TestProgress_Candidates(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTo(&buf, LevelNormal)

	long := strings.Repeat("word ", 40)
	p.Candidate(rewrite.Task{ID: 4, Text: "  Welcome\n  aboard  "})
	p.Candidate(rewrite.Task{ID: 5, Text: long})

	out := buf.String()
	assert.Contains(t, out, "• [4] Welcome aboard")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.TrimSpace(long))
}

func TestProgress_OutcomesAndReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTo(&buf, LevelVerbose)

	p.Candidate(rewrite.Task{ID: 0, Text: "hello world"})
	p.Outcome(rewrite.Outcome{TaskID: 0, Source: "hello world", Text: "ahoy world"})
	p.Report(rewrite.Task{ID: 1, Text: "hello again"}, &llm.ServiceError{StatusCode: 429, Body: `{"error":"rate limited"}`})
	p.Report(rewrite.Task{ID: 2, Text: "x"}, errors.New("connection dropped"))

	out := buf.String()
	assert.Contains(t, out, "✓ [1/1] task 0: ahoy world")
	assert.Contains(t, out, `task 1 ("hello again"): service returned 429: {"error":"rate limited"}`)
	assert.Contains(t, out, "connection dropped")
}

func TestProgress_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTo(&buf, LevelQuiet)

	p.Summary(&rewrite.Report{Outcomes: []rewrite.Outcome{{TaskID: 0}, {TaskID: 1, Err: errors.New("x")}}})
	assert.Contains(t, buf.String(), "1 rewritten, 1 failed")
}
