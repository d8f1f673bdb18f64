package classify

import (
	"context"
	"encoding/json"

	"ai-course-tutor/internal/core/chat"
)

// Classification is the scope a question was judged to be about. It drives
// both the retrieval filter and the summary segment of the system message.
type Classification string

const (
	Course         Classification = "course"
	CurrentLecture Classification = "current_lecture"
	Platform       Classification = "platform"
	Unsure         Classification = "unsure"
)

// ParseClassification validates a raw enum value.
func ParseClassification(s string) (Classification, bool) {
	switch Classification(s) {
	case Course, CurrentLecture, Platform, Unsure:
		return Classification(s), true
	}
	return "", false
}

// QueryLanguage is the detected language/script of the question.
type QueryLanguage string

const (
	LangSerbianCyrillic QueryLanguage = "sr-Cyrl"
	LangSerbianLatin    QueryLanguage = "sr-Latn"
	LangEnglish         QueryLanguage = "en"
	LangDefault         QueryLanguage = "default"
)

func parseLanguage(s string) (QueryLanguage, bool) {
	switch QueryLanguage(s) {
	case LangSerbianCyrillic, LangSerbianLatin, LangEnglish, LangDefault:
		return QueryLanguage(s), true
	}
	return "", false
}

var languageDirectives = map[QueryLanguage]string{
	LangSerbianCyrillic: "Answer in Serbian Cyrillic script.",
	LangSerbianLatin:    "Answer in Serbian Latin script.",
	LangEnglish:         "Answer in English.",
	LangDefault:         "Answer in the same language as the question.",
}

// AnswerLanguageDirective returns the instruction line matching the
// detected query language.
func AnswerLanguageDirective(lang QueryLanguage) string {
	if d, ok := languageDirectives[lang]; ok {
		return d
	}
	return languageDirectives[LangDefault]
}

// Output is the classifier's judgement for one turn. RestatedQuestion is
// never empty and FollowupQuestions always has two entries, possibly
// empty strings, to keep the downstream UI contract simple.
type Output struct {
	Classification    Classification `json:"classification"`
	RestatedQuestion  string         `json:"restated_question"`
	FollowupQuestions [2]string      `json:"followup_questions"`
	QueryLanguage     QueryLanguage  `json:"query_language"`
}

// Fallback is the judgement used whenever the structured response cannot
// be obtained or parsed: full available context, no follow-ups.
func Fallback(query string) Output {
	return Output{
		Classification:   Unsure,
		RestatedQuestion: query,
		QueryLanguage:    LangDefault,
	}
}

// StructuredRequest asks the completion capability for output conforming
// to a tool schema rather than free text.
type StructuredRequest struct {
	Model      string
	Messages   []chat.Message
	MaxTokens  int
	Tools      any
	ToolChoice any
}

// StructuredResult carries the provider's finish reason and the raw
// tool-call arguments, decoupled from any SDK response shape.
type StructuredResult struct {
	FinishReason string
	Arguments    json.RawMessage
}

// Completer is the structured-completion capability the classifier consumes.
type Completer interface {
	CompleteStructured(ctx context.Context, req StructuredRequest) (StructuredResult, error)
}
