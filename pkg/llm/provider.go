// Package llm defines the request model shared by the rewrite pipeline and
// the completion clients that talk to a chat-completion service.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/eiz/chatgpt-wd/pkg/llm"
//	    "github.com/eiz/chatgpt-wd/pkg/llm/openai"
//	)
//
//	func main() {
//	    client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    tmpl := llm.NewTemplate("gpt-3.5-turbo", "You rewrite text like a pirate.",
//	        llm.WithTemperature(1.0))
//
//	    result, err := client.Complete(context.Background(), tmpl.Build("Hello there"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Text)
//	}
package llm

import (
	"context"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"    // RoleSystem carries the instruction that frames the conversation.
	RoleUser      Role = "user"      // RoleUser carries the text to be rewritten.
	RoleAssistant Role = "assistant" // RoleAssistant carries generated replies.
)

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    Role
	Content string
}

// Request is a fully built completion request: the template's fields plus one
// user turn for a single piece of source text.
type Request struct {
	Model    string
	Messages []Message

	// Optional sampling parameters. Nil means unset and the field is
	// omitted from the wire request.
	Temperature      *float64
	TopP             *float64
	N                *int
	Stream           *bool
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// Streaming reports whether the request asks for a server-sent-event response.
func (r *Request) Streaming() bool {
	return r.Stream != nil && *r.Stream
}

// Usage contains token usage statistics reported by the service.
type Usage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated completion.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int
}

// Result is the parsed outcome of one successful completion call.
type Result struct {
	ID           string
	Model        string
	Text         string
	FinishReason string

	// Usage is zero for streamed responses, which do not report it.
	Usage Usage
}

// Completer issues a single completion request.
//
// Implementations return *ServiceError when the service answers with a
// non-success status and an error wrapping ErrMalformedResponse when a
// success response does not carry a usable choice. They never retry.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Result, error)
}

// CompleterFunc adapts an ordinary function to the Completer interface.
type CompleterFunc func(ctx context.Context, req *Request) (*Result, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}
