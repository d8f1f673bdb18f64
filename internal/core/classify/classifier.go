// Package classify produces a structured judgement about a learner
// question: what scope it refers to, a clearer restatement to use as the
// retrieval query, the question language, and two follow-up suggestions.
// Shape failures never propagate; they degrade to the unsure fallback.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/budget"
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/pkg/logger"
)

const maxClassifyTokens = 500

// Config identifies the classification model and its budget.
type Config struct {
	Model          string
	ContextWindow  int
	ReservedTokens int
}

type Classifier struct {
	cfg       Config
	completer Completer
	counter   token.Counter
}

func New(cfg Config, completer Completer, counter token.Counter) *Classifier {
	return &Classifier{cfg: cfg, completer: completer, counter: counter}
}

// Input is everything the classifier reads for one turn. History is the
// already-trimmed short-term view; CondensedHistory may be empty.
type Input struct {
	Query            string
	History          chat.History
	CourseSummary    string
	LessonSummary    string
	CondensedHistory string
}

// Classify requests the structured judgement. The only errors returned are
// a budget overflow for the classification call or a provider failure;
// parse and finish-reason problems are absorbed into the fallback output.
func (c *Classifier) Classify(ctx context.Context, in Input) (Output, error) {
	messages := c.buildMessages(in)

	if err := budget.Check(c.counter, messages, c.cfg.Model, c.cfg.ContextWindow, c.cfg.ReservedTokens); err != nil {
		return Fallback(in.Query), err
	}

	res, err := c.completer.CompleteStructured(ctx, StructuredRequest{
		Model:      c.cfg.Model,
		Messages:   messages,
		MaxTokens:  maxClassifyTokens,
		Tools:      toolsDefinition,
		ToolChoice: toolChoice,
	})
	if err != nil {
		return Fallback(in.Query), err
	}

	return Parse(res, in.Query), nil
}

func (c *Classifier) buildMessages(in Input) []chat.Message {
	var system string
	if in.CondensedHistory != "" {
		system = fmt.Sprintf(instructionsWithCondensed, in.CourseSummary, in.LessonSummary, in.CondensedHistory)
	} else {
		system = fmt.Sprintf(instructions, in.CourseSummary, in.LessonSummary)
	}

	messages := make([]chat.Message, 0, 2+2*len(in.History))
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: system})
	messages = append(messages, in.History.Messages()...)
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: in.Query})
	return messages
}

// rawArguments mirrors the tool-call JSON, nothing more.
type rawArguments struct {
	RestatedQuestion string `json:"restated_question"`
	ClassifyLanguage string `json:"classify_language"`
	ClassifyQuery    string `json:"classify_query"`
	Continuation     struct {
		Continuation1 string `json:"continuation_1"`
		Continuation2 string `json:"continuation_2"`
	} `json:"possible_conversation_continuation"`
}

// Parse validates the structured result against the expected shape.
// Any deviation (truncated or filtered output, unparseable JSON, unknown
// enum value) yields the fallback judgement for query.
func Parse(res StructuredResult, query string) Output {
	switch res.FinishReason {
	case "tool_calls", "stop":
	default:
		logger.Warn("%v: unexpected finish reason: %s", config.ModuleClassify, res.FinishReason)
		return Fallback(query)
	}

	if len(res.Arguments) == 0 {
		logger.Warn("%v: structured response missing tool arguments", config.ModuleClassify)
		return Fallback(query)
	}

	var args rawArguments
	if err := json.Unmarshal(res.Arguments, &args); err != nil {
		logger.Error(err, "%v: parse tool arguments failed", config.ModuleClassify)
		return Fallback(query)
	}

	classification, ok := ParseClassification(args.ClassifyQuery)
	if !ok {
		logger.Warn("%v: unknown classification value: %q", config.ModuleClassify, args.ClassifyQuery)
		return Fallback(query)
	}
	lang, ok := parseLanguage(args.ClassifyLanguage)
	if !ok {
		logger.Warn("%v: unknown language value: %q", config.ModuleClassify, args.ClassifyLanguage)
		return Fallback(query)
	}

	restated := args.RestatedQuestion
	if restated == "" {
		restated = query
	}

	return Output{
		Classification:    classification,
		RestatedQuestion:  restated,
		FollowupQuestions: [2]string{args.Continuation.Continuation1, args.Continuation.Continuation2},
		QueryLanguage:     lang,
	}
}
