package chat

import (
	corechat "ai-course-tutor/internal/core/chat"
)

// contextAttributes pins the question to a course position.
type contextAttributes struct {
	CourseKey   string `json:"course_key"`
	ActivityKey string `json:"activity_key"`
}

// chatInput is the request body of POST /api/chat. History and
// CondensedHistory are round-tripped through the client; the server keeps
// no conversation state between turns.
type chatInput struct {
	Question          string            `json:"question"`
	History           corechat.History  `json:"history"`
	CondensedHistory  string            `json:"condensed_history"`
	AccessKey         string            `json:"access_key"`
	ContextAttributes contextAttributes `json:"context_attributes"`
	Model             string            `json:"model"`
}

// deltaLine is one NDJSON line carrying a piece of the streamed answer.
type deltaLine struct {
	Delta string `json:"delta"`
}

// errorLine reports an in-band failure once streaming has begun.
type errorLine struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doneLine is the final NDJSON line of a successful turn. The client
// stores CondensedHistory and sends it back with the next question.
type doneLine struct {
	Done              bool           `json:"done"`
	Classification    string         `json:"classification"`
	FollowupQuestions []string       `json:"followup_questions"`
	CondensedHistory  string         `json:"condensed_history"`
	TokenUsage        map[string]int `json:"token_usage"`
}

// compareInput is the request body of POST /api/chat/compare.
type compareInput struct {
	AccessKey string `json:"access_key"`
	Current   string `json:"current"`
	Benchmark string `json:"benchmark"`
}
