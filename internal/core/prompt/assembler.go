// Package prompt assembles the per-turn system message from four segments
// in fixed order: instructions, scope summary, condensed history and
// retrieved chunks. Segment choice for the scope summary is a lookup
// table keyed by classification, so the mapping is exhaustive and
// testable in isolation.
package prompt

import (
	"fmt"
	"strings"

	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/querycontext"
	"ai-course-tutor/internal/core/token"
)

// Segment names used for token accounting. The recorded parts concatenate
// to exactly the message sent to the model.
const (
	SegmentInstructions     = "instructions"
	SegmentScopeSummary     = "scope_summary"
	SegmentCondensedHistory = "condensed_history"
	SegmentRetrievedChunks  = "retrieved_chunks"
)

// Summaries carries the scope texts the assembler can draw from.
type Summaries struct {
	Course string
	Lesson string
	TOC    string
}

type summaryBuilder func(Summaries) string

var summaryBuilders = map[classify.Classification]summaryBuilder{
	classify.Course: func(s Summaries) string {
		return fmt.Sprintf(courseSummaryTemplate, s.Course, s.TOC)
	},
	classify.CurrentLecture: func(s Summaries) string {
		return fmt.Sprintf(lessonSummaryTemplate, s.Lesson)
	},
	classify.Platform: func(Summaries) string {
		return platformSupportText
	},
	classify.Unsure: func(s Summaries) string {
		return fmt.Sprintf(unsureSummaryTemplate, s.Course, s.Lesson)
	},
}

type Assembler struct {
	counter token.Counter
}

func NewAssembler(counter token.Counter) *Assembler {
	return &Assembler{counter: counter}
}

// Input is one turn's raw material for the system message.
type Input struct {
	Classification    classify.Classification
	Summaries         Summaries
	LanguageDirective string
	CondensedHistory  string
	ChunkTexts        []string
}

// Assemble builds the system message. When qc is non-nil every segment is
// recorded into it, in order, with its token cost.
func (a *Assembler) Assemble(in Input, qc *querycontext.QueryContext) string {
	build, ok := summaryBuilders[in.Classification]
	if !ok {
		build = summaryBuilders[classify.Unsure]
	}

	segments := []struct {
		name string
		text string
	}{
		{SegmentInstructions, fixedInstructions + in.LanguageDirective + "\n\n"},
		{SegmentScopeSummary, build(in.Summaries)},
	}
	if in.CondensedHistory != "" {
		segments = append(segments, struct {
			name string
			text string
		}{SegmentCondensedHistory, fmt.Sprintf(condensedHistoryTemplate, in.CondensedHistory)})
	}
	segments = append(segments, struct {
		name string
		text string
	}{SegmentRetrievedChunks, fmt.Sprintf(ragTemplate, strings.Join(in.ChunkTexts, "\n\n"))})

	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.text)
		if qc != nil {
			qc.AddSystemMessagePart(seg.name, seg.text, a.counter)
		}
	}
	return sb.String()
}
