// Package openai provides a completion client for OpenAI-compatible
// chat-completion APIs.
//
// Example usage:
//
//	client, err := openai.NewClient("sk-...", openai.WithBaseURL("http://localhost:8080/v1"))
//	if err != nil {
//	    panic(err)
//	}
//
//	tmpl := llm.NewTemplate("gpt-3.5-turbo", "You rewrite text as if it was written by a pirate.")
//	result, err := client.Complete(ctx, tmpl.Build("Welcome to our website"))
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Client implements llm.Completer for OpenAI-compatible APIs. It is safe for
// concurrent use; every call is an independent HTTP round-trip.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

var _ llm.Completer = (*Client)(nil)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the transport used for requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new client authenticating with the given bearer token.
//
// If baseURL is not provided via WithBaseURL option, it will check the
// OPENAI_BASE_URL environment variable.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			c.baseURL = envBaseURL
		}
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	return c, nil
}

// BaseURL returns the base URL being used.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// chatRequest is the wire form of llm.Request. Unset sampling fields are
// omitted rather than sent as null.
type chatRequest struct {
	Model            string                                   `json:"model"`
	Messages         []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Temperature      *float64                                 `json:"temperature,omitempty"`
	TopP             *float64                                 `json:"top_p,omitempty"`
	N                *int                                     `json:"n,omitempty"`
	Stream           *bool                                    `json:"stream,omitempty"`
	MaxTokens        *int                                     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64                                 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64                                 `json:"frequency_penalty,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason *string     `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatResponse is the success envelope of a non-streamed completion.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// Complete sends one request and returns the first choice of the reply.
//
// A non-2xx status yields *llm.ServiceError holding the body verbatim. A 2xx
// reply without choices yields an error wrapping llm.ErrMalformedResponse.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if req.Streaming() {
		return readStream(resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("%w: response %q has no choices", llm.ErrMalformedResponse, envelope.ID)
	}

	choice := envelope.Choices[0]
	result := &llm.Result{
		ID:    envelope.ID,
		Model: envelope.Model,
		Text:  choice.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     envelope.Usage.PromptTokens,
			CompletionTokens: envelope.Usage.CompletionTokens,
			TotalTokens:      envelope.Usage.TotalTokens,
		},
	}
	if choice.FinishReason != nil {
		result.FinishReason = *choice.FinishReason
	}

	return result, nil
}

// send creates and sends the HTTP request, returning the response only when
// the status is a success.
func (c *Client) send(ctx context.Context, req *llm.Request) (*http.Response, error) {
	bodyBytes, err := json.Marshal(toWire(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Streaming() {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, &llm.ServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

func toWire(req *llm.Request) *chatRequest {
	return &chatRequest{
		Model:            req.Model,
		Messages:         convertToOpenAIMessages(req.Messages),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		N:                req.N,
		Stream:           req.Stream,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}
}

// convertToOpenAIMessages converts our Message format to OpenAI's ChatCompletionMessageParamUnion format.
func convertToOpenAIMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
