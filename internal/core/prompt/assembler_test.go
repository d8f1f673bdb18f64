package prompt

import (
	"strings"
	"testing"

	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/querycontext"
	"ai-course-tutor/internal/core/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(class classify.Classification) Input {
	return Input{
		Classification: class,
		Summaries: Summaries{
			Course: "COURSE-SUMMARY",
			Lesson: "LESSON-SUMMARY",
			TOC:    "TOC-TEXT",
		},
		LanguageDirective: "Answer in English.",
		ChunkTexts:        []string{"chunk one", "chunk two"},
	}
}

func TestAssemble_CourseScope(t *testing.T) {
	a := NewAssembler(token.NewAccountant())
	msg := a.Assemble(testInput(classify.Course), nil)

	assert.Contains(t, msg, "COURSE-SUMMARY")
	assert.Contains(t, msg, "TOC-TEXT")
	assert.NotContains(t, msg, "LESSON-SUMMARY")
	assert.Contains(t, msg, "chunk one\n\nchunk two")
}

func TestAssemble_LectureScope(t *testing.T) {
	a := NewAssembler(token.NewAccountant())
	msg := a.Assemble(testInput(classify.CurrentLecture), nil)

	assert.Contains(t, msg, "LESSON-SUMMARY")
	assert.NotContains(t, msg, "COURSE-SUMMARY")
}

func TestAssemble_PlatformScopeAlwaysHasSupportText(t *testing.T) {
	a := NewAssembler(token.NewAccountant())

	in := testInput(classify.Platform)
	in.Summaries = Summaries{} // summaries must not matter
	msg := a.Assemble(in, nil)

	assert.Contains(t, msg, "support@platform.example")
}

func TestAssemble_UnsureScopeCarriesBothSummariesAndCaveat(t *testing.T) {
	a := NewAssembler(token.NewAccountant())
	msg := a.Assemble(testInput(classify.Unsure), nil)

	assert.Contains(t, msg, "COURSE-SUMMARY")
	assert.Contains(t, msg, "LESSON-SUMMARY")
	assert.Contains(t, msg, "out of the scope")
}

func TestAssemble_CondensedSegmentOmittedWhenEmpty(t *testing.T) {
	a := NewAssembler(token.NewAccountant())

	qc := querycontext.New()
	a.Assemble(testInput(classify.Course), qc)
	_, present := qc.TokenSizes[SegmentCondensedHistory]
	assert.False(t, present, "condensed segment must be omitted, not empty")

	in := testInput(classify.Course)
	in.CondensedHistory = "they talked about loops"
	qc = querycontext.New()
	msg := a.Assemble(in, qc)
	assert.Contains(t, msg, "they talked about loops")
	assert.Greater(t, qc.TokenSizes[SegmentCondensedHistory], 0)
}

// fieldCounter counts whitespace-separated fields. Every segment ends in
// a blank line, so counting is exactly additive across segments and the
// round-trip property below holds with equality.
type fieldCounter struct{}

func (fieldCounter) Count(text string) int { return len(strings.Fields(text)) }

func TestAssemble_AccountingSumsToWholeMessage(t *testing.T) {
	counter := fieldCounter{}
	a := NewAssembler(counter)

	in := testInput(classify.Course)
	in.CondensedHistory = "earlier the learner asked about variables"
	qc := querycontext.New()
	msg := a.Assemble(in, qc)

	// the recorded parts reconstruct the message exactly
	require.Equal(t, msg, qc.SystemMessage)

	// per-segment accounting sums to the cost of the whole message
	assert.Equal(t, counter.Count(msg), qc.TotalTokens())

	for _, name := range []string{SegmentInstructions, SegmentScopeSummary, SegmentCondensedHistory, SegmentRetrievedChunks} {
		_, ok := qc.TokenSizes[name]
		require.True(t, ok, "missing segment %s", name)
	}
}
