package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/pkg/logger"
)

// Raw request/response shapes for /chat/completions. The SDK's typed
// params do not expose every field the same way across providers, so
// non-streaming calls go through client.Post with explicit structs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Tools       any           `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func toWireMessages(messages []chat.Message) []chatMessage {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// Complete runs a plain completion and returns the trimmed reply text.
func (c *Client) Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (string, error) {
	client, err := c.forModel(model)
	if err != nil {
		return "", err
	}
	req := chatRequest{
		Model:       model,
		Messages:    toWireMessages(messages),
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	}
	var out chatResponse
	if err := client.Post(ctx, "/chat/completions", req, &out); err != nil {
		logger.Error(err, "%v: completion failed for %s", config.ModuleOpenAI, model)
		return "", err
	}
	if out.Error != nil {
		return "", errors.New(out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%v: no choices returned", config.ModuleOpenAI)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// CompleteStructured runs a tool-forced completion and hands back the
// finish reason and raw tool-call arguments. Parsing and validating the
// arguments is the caller's concern.
func (c *Client) CompleteStructured(ctx context.Context, req classify.StructuredRequest) (classify.StructuredResult, error) {
	client, err := c.forModel(req.Model)
	if err != nil {
		return classify.StructuredResult{}, err
	}
	wire := chatRequest{
		Model:      req.Model,
		Messages:   toWireMessages(req.Messages),
		MaxTokens:  req.MaxTokens,
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
	}
	var out chatResponse
	if err := client.Post(ctx, "/chat/completions", wire, &out); err != nil {
		logger.Error(err, "%v: structured completion failed for %s", config.ModuleOpenAI, req.Model)
		return classify.StructuredResult{}, err
	}
	if out.Error != nil {
		return classify.StructuredResult{}, errors.New(out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return classify.StructuredResult{}, fmt.Errorf("%v: no choices returned", config.ModuleOpenAI)
	}

	choice := out.Choices[0]
	result := classify.StructuredResult{FinishReason: choice.FinishReason}
	if len(choice.Message.ToolCalls) > 0 {
		result.Arguments = json.RawMessage(choice.Message.ToolCalls[0].Function.Arguments)
	}
	return result, nil
}
