// Package budget guards every outgoing model call against context-window
// overflow. The same check runs before classification, embedding and
// generation, each with its own model window and response reservation.
package budget

import (
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/fault"
	"ai-course-tutor/internal/core/token"
)

// Check sums the token cost of every message and fails with a
// ContextOverflowError when the input would not leave reserved tokens of
// room for the response inside window.
func Check(counter token.Counter, messages []chat.Message, model string, window, reserved int) error {
	total := 0
	for _, m := range messages {
		total += counter.Count(m.Content)
	}
	return CheckTokens(total, model, window, reserved)
}

// CheckTokens is the raw form of Check for callers that already hold a
// token count, such as the embedding step.
func CheckTokens(inputTokens int, model string, window, reserved int) error {
	if inputTokens > window-reserved {
		return &fault.ContextOverflowError{
			Model:          model,
			InputTokens:    inputTokens,
			ContextWindow:  window,
			ReservedTokens: reserved,
		}
	}
	return nil
}
