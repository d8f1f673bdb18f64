package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeepRecent(t *testing.T) {
	h := History{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}, {Question: "q3", Answer: "a3"}}

	got := h.KeepRecent(1)
	assert.Equal(t, History{{Question: "q3", Answer: "a3"}}, got)

	// full history untouched
	assert.Len(t, h, 3)

	assert.Equal(t, h, h.KeepRecent(5))
	assert.Empty(t, h.KeepRecent(0))
}

func TestKeepRecent_NoAliasing(t *testing.T) {
	h := History{{Question: "q1"}, {Question: "q2"}}
	trimmed := h.KeepRecent(1)
	trimmed[0].Question = "mutated"
	assert.Equal(t, "q2", h[1].Question)
}

func TestLastTwo(t *testing.T) {
	h := History{{Question: "q1"}, {Question: "q2"}}
	older, newer, ok := h.LastTwo()
	assert.True(t, ok)
	assert.Equal(t, "q1", older.Question)
	assert.Equal(t, "q2", newer.Question)

	_, _, ok = History{{Question: "only"}}.LastTwo()
	assert.False(t, ok)
}

func TestMessages_Order(t *testing.T) {
	h := History{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	msgs := h.Messages()
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	}, msgs)
}
