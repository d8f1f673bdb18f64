package ai

import (
	"context"

	openai "github.com/openai/openai-go/v3"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/pkg/logger"
)

func toParamMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// StreamCompletion runs a streaming completion and forwards each content
// delta to onFragment. A non-nil return from onFragment aborts the stream
// and is returned unchanged so the caller can tell its own cancellation
// apart from provider failures.
func (c *Client) StreamCompletion(ctx context.Context, model string, messages []chat.Message, maxTokens int, onFragment func(string) error) error {
	client, err := c.forModel(model)
	if err != nil {
		return err
	}

	stream := client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(model),
		Messages:  toParamMessages(messages),
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onFragment(delta); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error(err, "%v: stream failed for %s", config.ModuleOpenAI, model)
		return err
	}
	return nil
}
