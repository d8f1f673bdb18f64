package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/engine"
	"ai-course-tutor/internal/core/fault"
	"ai-course-tutor/internal/core/querycontext"
	"ai-course-tutor/internal/database/model"
)

type fakeEngine struct {
	fragments []string
	result    *engine.Result
	err       error
	gotReq    engine.Request
	gotCtx    context.Context
}

func (f *fakeEngine) Answer(ctx context.Context, req engine.Request, onFragment func(string) error) (*engine.Result, error) {
	f.gotReq = req
	f.gotCtx = ctx
	for _, fr := range f.fragments {
		if err := onFragment(fr); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestApp(eng *fakeEngine, persisted *[]model.ChatLog) *fiber.App {
	h := NewHandler(eng, nil)
	h.persist = func(_ context.Context, entry *model.ChatLog) error {
		*persisted = append(*persisted, *entry)
		return nil
	}
	app := fiber.New()
	RegisterRoutes(app, h)
	return app
}

func postChat(t *testing.T, app *fiber.App, body any) ([]map[string]json.RawMessage, int) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var lines []map[string]json.RawMessage
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var line map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines, resp.StatusCode
}

func TestHandleChatStreamsAndPersists(t *testing.T) {
	qc := querycontext.New()
	qc.TokenSizes["instructions"] = 42
	eng := &fakeEngine{
		fragments: []string{"Hello ", "world."},
		result: &engine.Result{
			Answer:            "Hello world.",
			CondensedHistory:  "summary so far",
			Classification:    classify.Course,
			FollowupQuestions: [2]string{"What next?", ""},
			Context:           qc,
		},
	}
	var persisted []model.ChatLog
	app := newTestApp(eng, &persisted)

	lines, code := postChat(t, app, fiber.Map{
		"question":   "what is this course about?",
		"access_key": "anything",
		"context_attributes": fiber.Map{
			"course_key":   "cs101",
			"activity_key": "loops-1",
		},
	})
	require.Equal(t, 200, code)
	require.Len(t, lines, 3)

	var delta string
	require.NoError(t, json.Unmarshal(lines[0]["delta"], &delta))
	require.Equal(t, "Hello ", delta)

	var done doneLine
	last, err := json.Marshal(lines[2])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(last, &done))
	require.True(t, done.Done)
	require.Equal(t, "summary so far", done.CondensedHistory)
	require.Equal(t, []string{"What next?"}, done.FollowupQuestions)
	require.Equal(t, 42, done.TokenUsage["instructions"])

	require.Equal(t, "cs101", eng.gotReq.CourseKey)
	require.NotNil(t, eng.gotCtx)
	require.NotEqual(t, context.Background(), eng.gotCtx,
		"the turn must run on the request context, not the background context")
	require.Len(t, persisted, 1)
	require.Equal(t, "Hello world.", persisted[0].Answer)
	require.Equal(t, "course", persisted[0].Classification)
}

func TestHandleChatProbe(t *testing.T) {
	eng := &fakeEngine{}
	var persisted []model.ChatLog
	app := newTestApp(eng, &persisted)

	raw, _ := json.Marshal(fiber.Map{"question": "_test"})
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "_OK", string(body))
	require.Empty(t, persisted)
}

func TestHandleChatOverflowIsUserVisible(t *testing.T) {
	eng := &fakeEngine{err: &fault.ContextOverflowError{Model: "gpt-4o", InputTokens: 200000, ContextWindow: 128000}}
	var persisted []model.ChatLog
	app := newTestApp(eng, &persisted)

	lines, code := postChat(t, app, fiber.Map{"question": "a very long question"})
	require.Equal(t, 200, code)
	require.Len(t, lines, 1)
	var e errorLine
	last, _ := json.Marshal(lines[0])
	require.NoError(t, json.Unmarshal(last, &e))
	require.Contains(t, e.Error.Message, "shorter question")
	require.Empty(t, persisted, "failed turns must not be persisted")
}

func TestHandleChatProviderErrorMidStream(t *testing.T) {
	eng := &fakeEngine{
		fragments: []string{"partial "},
		err:       fault.Provider("generation", errors.New("connection reset")),
	}
	var persisted []model.ChatLog
	app := newTestApp(eng, &persisted)

	lines, _ := postChat(t, app, fiber.Map{"question": "q"})
	require.Len(t, lines, 2)
	_, isDelta := lines[0]["delta"]
	require.True(t, isDelta)
	_, isErr := lines[1]["error"]
	require.True(t, isErr)
	require.Empty(t, persisted)
}

func TestHandleChatValidation(t *testing.T) {
	eng := &fakeEngine{}
	var persisted []model.ChatLog
	app := newTestApp(eng, &persisted)

	// empty question
	raw, _ := json.Marshal(fiber.Map{"question": "   "})
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 400, resp.StatusCode)

	// access keys configured and the caller's key is not among them
	prev := config.Cfg.Chat.AccessKeys
	config.Cfg.Chat.AccessKeys = []string{"valid-key"}
	t.Cleanup(func() { config.Cfg.Chat.AccessKeys = prev })

	raw, _ = json.Marshal(fiber.Map{"question": "q", "access_key": "wrong"})
	req = httptest.NewRequest("POST", "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 403, resp.StatusCode)
}
