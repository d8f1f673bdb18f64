// Package engine orchestrates one conversational turn: classify the
// question, retrieve scoped context, assemble a budgeted system message,
// stream the answer, then condense history for the next turn.
package engine

import (
	"context"
	"fmt"
	"strings"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/budget"
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/fault"
	"ai-course-tutor/internal/core/prompt"
	"ai-course-tutor/internal/core/querycontext"
	"ai-course-tutor/internal/core/retriever"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/pkg/logger"
)

// Classifier judges what a question is about.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) (classify.Output, error)
}

// Condenser folds finished turns into the rolling history summary.
type Condenser interface {
	Condense(ctx context.Context, history chat.History, condensed string) string
}

// ChunkRetriever performs the scoped similarity search.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, class classify.Classification, courseKey, activityKey string) (retriever.Result, error)
}

// Streamer submits the final message sequence with streaming enabled and
// forwards each text fragment as it arrives.
type Streamer interface {
	StreamCompletion(ctx context.Context, model string, messages []chat.Message, maxTokens int, onFragment func(string) error) error
}

// SummaryProvider reads course and lesson context from the dataset.
type SummaryProvider interface {
	GetSummaries(ctx context.Context, courseKey, activityKey string) (courseSummary, lessonSummary string, err error)
	GetTOC(ctx context.Context, courseKey string) (string, error)
}

// Registry maps a model name to its context window.
type Registry interface {
	ContextWindow(model string) (int, error)
}

// Config fixes the engine's per-turn policy.
type Config struct {
	DefaultModel string
	// KeepRecentTurns is how many explicit turns survive trimming once a
	// condensed history exists. Trimming happens once, before
	// classification; condensation runs after the stream completes.
	KeepRecentTurns        int
	GenerateReservedTokens int
}

// Engine is constructed once at process start and injected into request
// handlers; it holds no per-turn state.
type Engine struct {
	cfg        Config
	classifier Classifier
	condenser  Condenser
	retriever  ChunkRetriever
	assembler  *prompt.Assembler
	streamer   Streamer
	summaries  SummaryProvider
	registry   Registry
	counter    token.Counter
}

type Deps struct {
	Classifier Classifier
	Condenser  Condenser
	Retriever  ChunkRetriever
	Assembler  *prompt.Assembler
	Streamer   Streamer
	Summaries  SummaryProvider
	Registry   Registry
	Counter    token.Counter
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.KeepRecentTurns <= 0 {
		cfg.KeepRecentTurns = 1
	}
	if cfg.GenerateReservedTokens <= 0 {
		cfg.GenerateReservedTokens = 2000
	}
	return &Engine{
		cfg:        cfg,
		classifier: deps.Classifier,
		condenser:  deps.Condenser,
		retriever:  deps.Retriever,
		assembler:  deps.Assembler,
		streamer:   deps.Streamer,
		summaries:  deps.Summaries,
		registry:   deps.Registry,
		counter:    deps.Counter,
	}
}

// Request is one turn's input. History and CondensedHistory are
// caller-owned; the engine never persists them.
type Request struct {
	Question         string
	History          chat.History
	CondensedHistory string
	CourseKey        string
	ActivityKey      string
	Model            string
}

// Result is everything a turn hands back besides the streamed fragments.
// CondensedHistory is the caller's state for the next turn.
type Result struct {
	Answer            string
	CondensedHistory  string
	Classification    classify.Classification
	FollowupQuestions [2]string
	Context           *querycontext.QueryContext
}

// Answer runs the per-turn pipeline, forwarding each generated fragment
// to onFragment as it arrives. Only context-overflow and provider errors
// come back; classification-shape failures have already degraded to the
// unsure fallback inside the classifier.
func (e *Engine) Answer(ctx context.Context, req Request, onFragment func(string) error) (*Result, error) {
	model := req.Model
	if model == "" {
		model = e.cfg.DefaultModel
	}
	window, err := e.registry.ContextWindow(model)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", config.ModuleEngine, err)
	}

	// Trim once, before classification. The full history stays untouched
	// for condensation after the stream.
	fullHistory := req.History
	working := fullHistory
	if req.CondensedHistory != "" {
		working = fullHistory.KeepRecent(e.cfg.KeepRecentTurns)
	}

	courseSummary, lessonSummary, err := e.summaries.GetSummaries(ctx, req.CourseKey, req.ActivityKey)
	if err != nil {
		return nil, fault.Provider("context-store", err)
	}

	judgement, err := e.classifier.Classify(ctx, classify.Input{
		Query:            req.Question,
		History:          working,
		CourseSummary:    courseSummary,
		LessonSummary:    lessonSummary,
		CondensedHistory: req.CondensedHistory,
	})
	if err != nil {
		// overflow keeps its identity; anything else is a provider fault
		return nil, fault.Provider("classification", err)
	}
	logger.Debug("%v: classified %q as %s", config.ModuleEngine, req.Question, judgement.Classification)

	retrieved, err := e.retriever.Retrieve(ctx, judgement.RestatedQuestion,
		judgement.Classification, req.CourseKey, req.ActivityKey)
	if err != nil {
		return nil, fault.Provider("retrieval", err)
	}

	toc := ""
	if judgement.Classification == classify.Course {
		toc, err = e.summaries.GetTOC(ctx, req.CourseKey)
		if err != nil {
			logger.Error(err, "%v: toc unavailable for %s", config.ModuleEngine, req.CourseKey)
			toc = ""
		}
	}

	qc := querycontext.New()
	for _, c := range retrieved {
		qc.AddChunkMetadata(c.Metadata, c.Distance)
	}
	systemMessage := e.assembler.Assemble(prompt.Input{
		Classification:    judgement.Classification,
		Summaries:         prompt.Summaries{Course: courseSummary, Lesson: lessonSummary, TOC: toc},
		LanguageDirective: classify.AnswerLanguageDirective(judgement.QueryLanguage),
		CondensedHistory:  req.CondensedHistory,
		ChunkTexts:        retrieved.Texts(),
	}, qc)

	messages := make([]chat.Message, 0, 2+2*len(working))
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: systemMessage})
	messages = append(messages, working.Messages()...)
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: req.Question})

	for _, m := range working.Messages() {
		qc.AddTokens("history", m.Content, e.counter)
	}
	qc.AddTokens("user_query", req.Question, e.counter)

	if err := budget.Check(e.counter, messages, model, window, e.cfg.GenerateReservedTokens); err != nil {
		return nil, err
	}
	qc.LogTokenSizes()

	var answer strings.Builder
	err = e.streamer.StreamCompletion(ctx, model, messages, e.cfg.GenerateReservedTokens, func(fragment string) error {
		answer.WriteString(fragment)
		return onFragment(fragment)
	})
	if err != nil {
		// partially generated text is discarded, not recorded as a turn
		return nil, fault.Provider("generation", err)
	}

	// Condensation for the next turn consumes the original, untrimmed
	// history plus the turn that just finished. Its failures are absorbed
	// inside the condenser; a delivered answer is never invalidated.
	completed := append(append(chat.History(nil), fullHistory...), chat.Turn{
		Question: req.Question,
		Answer:   answer.String(),
	})
	condensed := e.condenser.Condense(ctx, completed, req.CondensedHistory)

	return &Result{
		Answer:            answer.String(),
		CondensedHistory:  condensed,
		Classification:    judgement.Classification,
		FollowupQuestions: judgement.FollowupQuestions,
		Context:           qc,
	}, nil
}
