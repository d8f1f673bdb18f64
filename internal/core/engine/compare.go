package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/internal/core/fault"
)

// Completer submits a plain, non-streaming completion.
type Completer interface {
	Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (string, error)
}

const compareTemplate = `Evaluate two answers to the same question and grade how close in meaning the current answer is to the benchmark answer.

Grade on a scale from 0 to 5:
0 - the answers are unrelated
5 - the answers are equivalent in meaning

Respond with the grade as a single number and nothing else.

Benchmark answer:
%s

Current answer:
%s
`

// Comparer grades answer similarity against a benchmark, used by the
// regression-evaluation endpoint.
type Comparer struct {
	model     string
	completer Completer
}

func NewComparer(model string, completer Completer) *Comparer {
	return &Comparer{model: model, completer: completer}
}

// Compare returns a similarity grade in [0, 5].
func (c *Comparer) Compare(ctx context.Context, current, benchmark string) (int, error) {
	messages := []chat.Message{
		{Role: chat.RoleUser, Content: fmt.Sprintf(compareTemplate, benchmark, current)},
	}
	reply, err := c.completer.Complete(ctx, c.model, messages, 10)
	if err != nil {
		return 0, fault.Provider("compare", err)
	}
	grade, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, fmt.Errorf("compare: non-numeric grade %q", reply)
	}
	if grade < 0 || grade > 5 {
		return 0, fmt.Errorf("compare: grade %d out of range", grade)
	}
	return grade, nil
}
