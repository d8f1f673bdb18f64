package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ai-course-tutor/internal/core/retriever"
)

func TestBuildExpr(t *testing.T) {
	require.Equal(t, `course_key == "cs101"`,
		BuildExpr(retriever.Filter{CourseKey: "cs101"}))

	require.Equal(t, `course_key == "cs101" && activity_key == "loops-1"`,
		BuildExpr(retriever.Filter{CourseKey: "cs101", ActivityKey: "loops-1"}))

	require.Equal(t, "", BuildExpr(retriever.Filter{}))
}
