package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/engine"
	"ai-course-tutor/internal/core/fault"
	"ai-course-tutor/internal/database"
	"ai-course-tutor/internal/database/model"
	"ai-course-tutor/pkg/apperror"
	"ai-course-tutor/pkg/apperror/status"
	"ai-course-tutor/pkg/logger"
)

// probeQuestion is a deployment liveness probe that bypasses the whole
// pipeline and costs no provider tokens.
const (
	probeQuestion = "_test"
	probeAnswer   = "_OK"
)

// Answerer runs one conversational turn, streaming fragments through the
// callback.
type Answerer interface {
	Answer(ctx context.Context, req engine.Request, onFragment func(string) error) (*engine.Result, error)
}

type Handler struct {
	engine   Answerer
	comparer *engine.Comparer
	// persist is swapped out in tests
	persist func(ctx context.Context, entry *model.ChatLog) error
}

func NewHandler(eng Answerer, comparer *engine.Comparer) *Handler {
	return &Handler{
		engine:   eng,
		comparer: comparer,
		persist:  database.CreateEntity[model.ChatLog],
	}
}

func (h *Handler) accessAllowed(key string) bool {
	allowed := config.Cfg.Chat.AccessKeys
	if len(allowed) == 0 {
		return true
	}
	for _, k := range allowed {
		if k == key {
			return true
		}
	}
	return false
}

// HandleChat answers one turn as an NDJSON stream: zero or more delta
// lines followed by a single done line, or an error line if the turn
// fails after streaming has begun.
func (h *Handler) HandleChat(c fiber.Ctx) error {
	var in chatInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperror.BadRequest(config.ModuleChat, c, status.ChatInvalidRequestBody, err.Error())
	}
	if !h.accessAllowed(in.AccessKey) {
		return apperror.Forbidden(config.ModuleChat, c, status.ChatAccessDenied, "access denied")
	}
	in.Question = strings.TrimSpace(in.Question)
	if in.Question == "" {
		return apperror.BadRequest(config.ModuleChat, c, status.ChatMissingParams, "question is empty")
	}
	if in.Question == probeQuestion {
		return c.SendString(probeAnswer)
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	// request-scoped context: a dropped connection cancels the pipeline
	// stages that run before the first fragment is written
	ctx := c.RequestCtx()
	return c.SendStreamWriter(func(w *bufio.Writer) {
		h.streamTurn(ctx, w, in)
	})
}

func (h *Handler) streamTurn(ctx context.Context, w *bufio.Writer, in chatInput) {
	enc := json.NewEncoder(w)
	writeLine := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		return w.Flush()
	}

	res, err := h.engine.Answer(ctx, engine.Request{
		Question:         in.Question,
		History:          in.History,
		CondensedHistory: in.CondensedHistory,
		CourseKey:        in.ContextAttributes.CourseKey,
		ActivityKey:      in.ContextAttributes.ActivityKey,
		Model:            in.Model,
	}, func(fragment string) error {
		return writeLine(deltaLine{Delta: fragment})
	})
	if err != nil {
		h.writeTurnError(writeLine, err)
		return
	}

	if err := h.persist(context.Background(), &model.ChatLog{
		AccessKey:      in.AccessKey,
		CourseKey:      in.ContextAttributes.CourseKey,
		ActivityKey:    in.ContextAttributes.ActivityKey,
		Question:       in.Question,
		Answer:         res.Answer,
		Classification: string(res.Classification),
		Model:          in.Model,
		InputTokens:    res.Context.TotalTokens(),
	}); err != nil {
		// the answer was already delivered; losing the log line must not
		// fail the turn
		logger.Error(err, "%v: persist chat log failed", config.ModuleChat)
	}

	followups := make([]string, 0, 2)
	for _, q := range res.FollowupQuestions {
		if q != "" {
			followups = append(followups, q)
		}
	}
	_ = writeLine(doneLine{
		Done:              true,
		Classification:    string(res.Classification),
		FollowupQuestions: followups,
		CondensedHistory:  res.CondensedHistory,
		TokenUsage:        res.Context.TokenSizes,
	})
}

func (h *Handler) writeTurnError(writeLine func(any) error, err error) {
	var line errorLine
	var overflow *fault.ContextOverflowError
	var provider *fault.ProviderError
	switch {
	case errors.As(err, &overflow):
		line.Error.Code = fmt.Sprintf("AI-%d", status.ChatQuestionTooLong)
		line.Error.Message = "The conversation does not fit the model's context window. Try a shorter question or start a new conversation."
	case errors.As(err, &provider):
		line.Error.Code = fmt.Sprintf("AI-%d", status.ChatProviderFailed)
		line.Error.Message = "The assistant is temporarily unavailable. Please try again."
	default:
		line.Error.Code = fmt.Sprintf("AI-%d", status.ChatInternal)
		line.Error.Message = "Something went wrong answering this question."
	}
	logger.Error(err, "%v: turn failed (%s)", config.ModuleChat, line.Error.Code)
	_ = writeLine(line)
}

// HandleCompare grades how close an answer is to a benchmark answer,
// for offline regression evaluation of prompt changes.
func (h *Handler) HandleCompare(c fiber.Ctx) error {
	var in compareInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperror.BadRequest(config.ModuleChat, c, status.ChatInvalidRequestBody, err.Error())
	}
	if !h.accessAllowed(in.AccessKey) {
		return apperror.Forbidden(config.ModuleChat, c, status.ChatAccessDenied, "access denied")
	}
	if in.Current == "" || in.Benchmark == "" {
		return apperror.BadRequest(config.ModuleChat, c, status.ChatMissingParams, "current and benchmark are required")
	}

	grade, err := h.comparer.Compare(context.Background(), in.Current, in.Benchmark)
	if err != nil {
		return apperror.InternalError(config.ModuleChat, c, err)
	}
	return apperror.Success(config.ModuleChat, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "compare ok",
		Data:    fiber.Map{"grade": grade},
	})
}
