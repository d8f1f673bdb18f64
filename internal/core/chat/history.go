// Package chat holds the conversation data model shared by the query-time
// pipeline: messages, turns and pure helpers over ordered histories.
package chat

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one completed question/answer exchange.
type Turn struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// History is an ordered sequence of turns, oldest first. The engine never
// mutates a history in place; helpers below return new slices so the
// trimmed-for-classification view can never alias the full view used for
// condensation.
type History []Turn

// KeepRecent returns a copy of the n most recent turns.
func (h History) KeepRecent(n int) History {
	if n < 0 {
		n = 0
	}
	if len(h) <= n {
		return append(History(nil), h...)
	}
	return append(History(nil), h[len(h)-n:]...)
}

// Last returns the most recent turn. ok is false for an empty history.
func (h History) Last() (Turn, bool) {
	if len(h) == 0 {
		return Turn{}, false
	}
	return h[len(h)-1], true
}

// LastTwo returns the two most recent turns, older first.
// ok is false when the history holds fewer than two turns.
func (h History) LastTwo() (older Turn, newer Turn, ok bool) {
	if len(h) < 2 {
		return Turn{}, Turn{}, false
	}
	return h[len(h)-2], h[len(h)-1], true
}

// Messages interleaves the history as user/assistant messages, oldest first.
func (h History) Messages() []Message {
	msgs := make([]Message, 0, 2*len(h))
	for _, t := range h {
		msgs = append(msgs, Message{Role: RoleUser, Content: t.Question})
		msgs = append(msgs, Message{Role: RoleAssistant, Content: t.Answer})
	}
	return msgs
}
