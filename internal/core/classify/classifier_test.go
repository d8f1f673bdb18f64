package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/fault"
)

type fieldCounter struct{}

func (fieldCounter) Count(text string) int { return len(strings.Fields(text)) }

type fakeCompleter struct {
	res    StructuredResult
	err    error
	gotReq StructuredRequest
	called int
}

func (f *fakeCompleter) CompleteStructured(_ context.Context, req StructuredRequest) (StructuredResult, error) {
	f.called++
	f.gotReq = req
	return f.res, f.err
}

func arguments(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func validArguments(t *testing.T) json.RawMessage {
	return arguments(t, map[string]any{
		"restated_question": "what does the for loop condition check",
		"classify_language": "en",
		"classify_query":    "current_lecture",
		"possible_conversation_continuation": map[string]string{
			"continuation_1": "What about while loops?",
			"continuation_2": "Can a loop run zero times?",
		},
	})
}

func newTestClassifier(completer Completer) *Classifier {
	return New(Config{Model: "gpt-4o-mini", ContextWindow: 100000, ReservedTokens: 1000}, completer, fieldCounter{})
}

func TestClassifyParsesToolCall(t *testing.T) {
	fc := &fakeCompleter{res: StructuredResult{FinishReason: "tool_calls", Arguments: validArguments(t)}}
	cl := newTestClassifier(fc)

	out, err := cl.Classify(context.Background(), Input{Query: "what does it check?"})
	require.NoError(t, err)
	require.Equal(t, CurrentLecture, out.Classification)
	require.Equal(t, "what does the for loop condition check", out.RestatedQuestion)
	require.Equal(t, LangEnglish, out.QueryLanguage)
	require.Equal(t, "What about while loops?", out.FollowupQuestions[0])
	require.Equal(t, "Can a loop run zero times?", out.FollowupQuestions[1])
}

func TestClassifySystemMessageCarriesContext(t *testing.T) {
	fc := &fakeCompleter{res: StructuredResult{FinishReason: "tool_calls", Arguments: validArguments(t)}}
	cl := newTestClassifier(fc)

	_, err := cl.Classify(context.Background(), Input{
		Query:            "and the condition?",
		History:          chat.History{{Question: "what is a loop?", Answer: "a repeated block"}},
		CourseSummary:    "an introductory programming course",
		LessonSummary:    "this lesson covers for loops",
		CondensedHistory: "the learner asked about variables earlier",
	})
	require.NoError(t, err)

	msgs := fc.gotReq.Messages
	require.Equal(t, chat.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "an introductory programming course")
	require.Contains(t, msgs[0].Content, "this lesson covers for loops")
	require.Contains(t, msgs[0].Content, "the learner asked about variables earlier")
	// history turns interleave between system and final user message
	require.Equal(t, chat.RoleUser, msgs[1].Role)
	require.Equal(t, "what is a loop?", msgs[1].Content)
	require.Equal(t, chat.RoleAssistant, msgs[2].Role)
	require.Equal(t, "and the condition?", msgs[len(msgs)-1].Content)
}

func TestClassifyContentFilterFallsBack(t *testing.T) {
	fc := &fakeCompleter{res: StructuredResult{FinishReason: "content_filter"}}
	cl := newTestClassifier(fc)

	out, err := cl.Classify(context.Background(), Input{Query: "q"})
	require.NoError(t, err, "a filtered classification must not fail the turn")
	require.Equal(t, Fallback("q"), out)
}

func TestClassifyMalformedArgumentsFallBack(t *testing.T) {
	cases := map[string]StructuredResult{
		"no arguments":     {FinishReason: "stop"},
		"invalid json":     {FinishReason: "tool_calls", Arguments: json.RawMessage(`{"restated`)},
		"unknown class":    {FinishReason: "tool_calls", Arguments: json.RawMessage(`{"classify_query":"weather","classify_language":"en"}`)},
		"unknown language": {FinishReason: "tool_calls", Arguments: json.RawMessage(`{"classify_query":"course","classify_language":"klingon"}`)},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			cl := newTestClassifier(&fakeCompleter{res: res})
			out, err := cl.Classify(context.Background(), Input{Query: "the question"})
			require.NoError(t, err)
			require.Equal(t, Fallback("the question"), out)
		})
	}
}

func TestClassifyEmptyRestatedKeepsQuery(t *testing.T) {
	raw := arguments(t, map[string]any{
		"restated_question": "",
		"classify_language": "default",
		"classify_query":    "course",
	})
	cl := newTestClassifier(&fakeCompleter{res: StructuredResult{FinishReason: "tool_calls", Arguments: raw}})

	out, err := cl.Classify(context.Background(), Input{Query: "the original question"})
	require.NoError(t, err)
	require.Equal(t, Course, out.Classification)
	require.Equal(t, "the original question", out.RestatedQuestion)
}

func TestClassifyOverflowReturnsBeforeCall(t *testing.T) {
	fc := &fakeCompleter{}
	cl := New(Config{Model: "gpt-4o-mini", ContextWindow: 1010, ReservedTokens: 1000}, fc, fieldCounter{})

	long := strings.Repeat("word ", 100)
	out, err := cl.Classify(context.Background(), Input{Query: long})
	var oerr *fault.ContextOverflowError
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, Unsure, out.Classification)
	require.Zero(t, fc.called, "an overflowing request must not reach the provider")
}

func TestClassifyProviderErrorPropagates(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("upstream 500")}
	cl := newTestClassifier(fc)

	out, err := cl.Classify(context.Background(), Input{Query: "q"})
	require.Error(t, err)
	require.Equal(t, Fallback("q"), out)
}
