// Package condense folds older conversation turns into a single rolling
// summary so future prompts stay bounded. A condensation failure is
// absorbed here: the turn's answer has already been delivered and must
// not be invalidated by it.
package condense

import (
	"context"
	"fmt"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/core/chat"
	"ai-course-tutor/pkg/logger"
)

// Completer is the plain non-streaming completion capability the
// condenser consumes. Its only contract is a language-preserving
// natural-language summary; no structure is parsed from the reply.
type Completer interface {
	Complete(ctx context.Context, model string, messages []chat.Message, maxTokens int) (string, error)
}

type Condenser struct {
	model     string
	completer Completer
	maxTokens int
}

// New builds a condenser. maxTokens caps the summary completion; it is
// the condense reservation from config.
func New(model string, completer Completer, maxTokens int) *Condenser {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Condenser{model: model, completer: completer, maxTokens: maxTokens}
}

const seedTemplate = `Summarize the following conversation between a learner and a teaching assistant.
Keep the summary short, factual and in the language of the conversation.

Learner: %s
Assistant: %s

Learner: %s
Assistant: %s`

const foldTemplate = `Here is a summary of a conversation between a learner and a teaching assistant:

%s

Extend the summary with the latest exchange below. Keep it short, factual and in the language of the conversation.

Learner: %s
Assistant: %s`

// Condense produces the updated rolling summary.
//
// With no existing summary it needs at least two turns and consumes
// exactly the two most recent; with an existing summary it folds in only
// the single most recent turn. Turns already represented in the existing
// summary must therefore never be passed back in via history growth; the
// caller hands in the full history and the selection here guarantees no
// turn is summarized twice.
//
// Errors are logged and swallowed; the caller receives "" and carries on.
func (c *Condenser) Condense(ctx context.Context, history chat.History, condensed string) string {
	var message string
	switch {
	case condensed == "" && len(history) < 2:
		// nothing to condense yet
		return ""
	case condensed == "":
		older, newer, _ := history.LastTwo()
		message = fmt.Sprintf(seedTemplate, older.Question, older.Answer, newer.Question, newer.Answer)
	default:
		last, ok := history.Last()
		if !ok {
			return condensed
		}
		message = fmt.Sprintf(foldTemplate, condensed, last.Question, last.Answer)
	}

	summary, err := c.completer.Complete(ctx, c.model,
		[]chat.Message{{Role: chat.RoleUser, Content: message}}, c.maxTokens)
	if err != nil {
		logger.Error(err, "%v: condensation failed, dropping summary for this turn", config.ModuleCondense)
		return ""
	}
	return summary
}
