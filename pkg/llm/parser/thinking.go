// Package parser provides utilities for parsing structured content out of
// model replies.
package parser

import (
	"strings"
)

// thinkingTags are the reasoning-span delimiters recognized by the parser.
var thinkingTags = map[string]bool{
	"<thinking>":  true,
	"</thinking>": false,
	"<think>":     true,
	"</think>":    false,
}

// ThinkingParser separates <thinking> (or <think>) spans from regular reply
// content. It keeps state across calls to Parse so tags split between stream
// chunks are still recognized.
type ThinkingParser struct {
	buffer     strings.Builder
	tagBuffer  strings.Builder // potential tag content between < and >
	inThinking bool
	inTag      bool // saw '<' but not yet '>'

	thinking strings.Builder
	message  strings.Builder
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse processes one content chunk and returns the thinking and message text
// that became definite with it. Either return value may be empty.
func (p *ThinkingParser) Parse(content string) (thinking, message string) {
	if content == "" {
		return "", ""
	}

	for _, ch := range content {
		if ch == '<' {
			// A second '<' means the previous one did not open a tag.
			if p.inTag {
				p.emit(p.tagBuffer.String())
				p.tagBuffer.Reset()
			}
			p.flushBuffer()

			p.inTag = true
			p.tagBuffer.WriteRune(ch)
			continue
		}

		if ch == '>' && p.inTag {
			p.tagBuffer.WriteRune(ch)
			tag := p.tagBuffer.String()
			p.tagBuffer.Reset()
			p.inTag = false

			if opens, ok := thinkingTags[strings.ToLower(tag)]; ok {
				p.inThinking = opens
				continue
			}

			p.emit(tag)
			continue
		}

		if p.inTag {
			p.tagBuffer.WriteRune(ch)
		} else {
			p.buffer.WriteRune(ch)
		}
	}

	p.flushBuffer()
	return p.take()
}

// Flush returns any buffered content that has not been emitted yet. Call it
// once the whole reply has been passed to Parse.
func (p *ThinkingParser) Flush() (thinking, message string) {
	if p.inTag && p.tagBuffer.Len() > 0 {
		p.emit(p.tagBuffer.String())
		p.tagBuffer.Reset()
		p.inTag = false
	}
	p.flushBuffer()
	return p.take()
}

// IsInThinking returns true if the parser is inside a thinking span.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Reset resets the parser state for a new reply.
func (p *ThinkingParser) Reset() {
	p.buffer.Reset()
	p.tagBuffer.Reset()
	p.thinking.Reset()
	p.message.Reset()
	p.inThinking = false
	p.inTag = false
}

// StripThinking returns text with every thinking span removed.
func StripThinking(text string) string {
	p := NewThinkingParser()
	_, head := p.Parse(text)
	_, tail := p.Flush()
	return head + tail
}

func (p *ThinkingParser) flushBuffer() {
	if p.buffer.Len() == 0 {
		return
	}
	p.emit(p.buffer.String())
	p.buffer.Reset()
}

func (p *ThinkingParser) emit(text string) {
	if text == "" {
		return
	}
	if p.inThinking {
		p.thinking.WriteString(text)
		return
	}
	p.message.WriteString(text)
}

func (p *ThinkingParser) take() (thinking, message string) {
	thinking, message = p.thinking.String(), p.message.String()
	p.thinking.Reset()
	p.message.Reset()
	return thinking, message
}
