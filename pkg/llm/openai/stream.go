package openai

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/eiz/chatgpt-wd/pkg/llm/parser"
)

const maxSSELine = 1024 * 1024

type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// readStream consumes a server-sent-event body and accumulates the content
// deltas of choice 0 until [DONE] or EOF.
func readStream(body io.Reader) (*llm.Result, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	thinkingParser := parser.NewThinkingParser()
	var content strings.Builder
	result := &llm.Result{}
	sawChoice := false

	for scanner.Scan() {
		line := scanner.Text()
		if !isValidSSELine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // Skip malformed chunks silently
		}
		if result.ID == "" {
			result.ID = chunk.ID
			result.Model = chunk.Model
		}
		for _, choice := range chunk.Choices {
			// Only the first choice is consumed when n > 1
			if choice.Index != 0 {
				continue
			}
			sawChoice = true
			_, message := thinkingParser.Parse(choice.Delta.Content)
			content.WriteString(message)
			if choice.FinishReason != nil {
				result.FinishReason = *choice.FinishReason
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read error: %w", err)
	}

	if !sawChoice {
		return nil, fmt.Errorf("%w: stream carried no choices", llm.ErrMalformedResponse)
	}

	_, tail := thinkingParser.Flush()
	content.WriteString(tail)
	result.Text = content.String()
	return result, nil
}

// isValidSSELine checks if a line is a valid SSE data line
func isValidSSELine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}
