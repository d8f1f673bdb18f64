package budget

import (
	"testing"

	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-separated words, which keeps the
// arithmetic in these tests obvious.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func TestCheck_WithinBudget(t *testing.T) {
	msgs := []chat.Message{
		{Role: chat.RoleSystem, Content: "one two three"},
		{Role: chat.RoleUser, Content: "four five"},
	}
	assert.NoError(t, Check(wordCounter{}, msgs, "m", 10, 5))
}

func TestCheck_Overflow(t *testing.T) {
	msgs := []chat.Message{
		{Role: chat.RoleSystem, Content: "one two three"},
		{Role: chat.RoleUser, Content: "four five six"},
	}
	err := Check(wordCounter{}, msgs, "m", 10, 5)
	require.Error(t, err)

	var overflow *fault.ContextOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, "m", overflow.Model)
	assert.Equal(t, 6, overflow.InputTokens)
	assert.Equal(t, 10, overflow.ContextWindow)
	assert.Equal(t, 5, overflow.ReservedTokens)
}

func TestCheckTokens_ExactFitPasses(t *testing.T) {
	assert.NoError(t, CheckTokens(5, "m", 10, 5))
	assert.Error(t, CheckTokens(6, "m", 10, 5))
}
