// Package format post-processes a single completion reply before it is
// written back into the page.
//
// Every function here is pure and operates on one string; replies are never
// combined or reordered.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/eiz/chatgpt-wd/pkg/llm/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const fence = "```"

// Options selects the steps Apply runs, in the order the fields appear.
type Options struct {
	StripThinking bool   `yaml:"strip_thinking"`
	StripFences   bool   `yaml:"strip_fences"`
	StripMarkup   bool   `yaml:"strip_markup"`
	TrimSpace     bool   `yaml:"trim_space"`
	CommentPrefix string `yaml:"comment_prefix"`
	Width         int    `yaml:"width"`
}

// DefaultOptions removes reasoning blocks and wrapping code fences and trims
// surrounding whitespace.
func DefaultOptions() Options {
	return Options{
		StripThinking: true,
		StripFences:   true,
		TrimSpace:     true,
	}
}

// Apply runs the enabled steps on text.
func (o Options) Apply(text string) string {
	if o.StripThinking {
		text = StripThinking(text)
	}
	if o.StripFences {
		text = StripFences(text)
	}
	if o.StripMarkup {
		text = StripMarkup(text)
	}
	if o.TrimSpace {
		text = strings.TrimSpace(text)
	}
	if o.CommentPrefix != "" {
		text = WrapComment(text, o.CommentPrefix, o.Width)
	}
	return text
}

// Transform returns Apply as a plain function value.
func (o Options) Transform() func(string) string {
	return o.Apply
}

// StripThinking removes <thinking> and <think> spans.
func StripThinking(text string) string {
	return parser.StripThinking(text)
}

// StripFences unwraps a reply that is entirely enclosed in a markdown code
// fence. The info string after the opening fence is dropped. Replies with
// fences in the middle of prose are returned unchanged.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, fence) || !strings.HasSuffix(trimmed, fence) || len(trimmed) < 2*len(fence) {
		return text
	}

	body := strings.TrimSuffix(trimmed, fence)
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		// ```inline```
		return strings.TrimSpace(strings.TrimPrefix(body, fence))
	}
	body = body[nl+1:]
	if strings.Contains(body, fence) {
		return text
	}
	return strings.TrimRight(body, "\n")
}

// StripMarkup converts an HTML fragment to its text content. Script and
// style bodies are dropped and block-level elements end a line. Text without
// any tag is returned unchanged.
func StripMarkup(text string) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), context)
	if err != nil {
		return text
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		case atom.Br:
			b.WriteByte('\n')
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Pre, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Table:
		return true
	}
	return false
}

// WrapComment prefixes every line of text with prefix, word-wrapping lines
// so that prefix plus content fits in width code points. A width that leaves
// no room for content disables wrapping. Blank lines receive the prefix with
// trailing whitespace removed.
func WrapComment(text, prefix string, width int) string {
	room := width - utf8.RuneCountInString(prefix)
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, strings.TrimRight(prefix, " \t"))
			continue
		}
		if room <= 0 {
			out = append(out, prefix+line)
			continue
		}
		for _, wrapped := range wrapLine(line, room) {
			out = append(out, prefix+wrapped)
		}
	}
	return strings.Join(out, "\n")
}

// wrapLine greedily packs words into lines of at most room code points. A
// single word longer than room gets a line of its own.
func wrapLine(line string, room int) []string {
	words := strings.Fields(line)
	var lines []string
	var cur strings.Builder
	curLen := 0

	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if curLen > 0 && curLen+1+wl > room {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
