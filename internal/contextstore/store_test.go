package contextstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "index.json", `{"courses": ["cs101"]}`)
	writeFile(t, dir, "cs101/summary.json", `{
		"course_key": "cs101",
		"title": "Intro to Programming",
		"summary_text_path": "summaries/course-summary.txt",
		"toc_text_path": "summaries/course-toc.txt",
		"activities": {
			"loops-1": {"title": "Loops", "summary_text_path": "summaries/loops-1.txt"}
		}
	}`)
	writeFile(t, dir, "cs101/summaries/course-summary.txt", "course summary text")
	writeFile(t, dir, "cs101/summaries/course-toc.txt", "1. Loops\n2. Functions")
	writeFile(t, dir, "cs101/summaries/loops-1.txt", "lesson summary text")

	hash := ChunkHash("cs101", "for loops repeat a block")
	writeFile(t, dir, "chunks/"+hash[:2]+"/"+hash+".txt", "for loops repeat a block")
	return dir
}

func TestChunkHash_Stable(t *testing.T) {
	h1 := ChunkHash("cs101", "some chunk text")
	h2 := ChunkHash("cs101", "some chunk text")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	// same text in another course is a different chunk
	assert.NotEqual(t, h1, ChunkHash("cs102", "some chunk text"))
}

func TestLoad_AndSummaries(t *testing.T) {
	ctx := context.Background()
	st, err := Load(ctx, newTestDataset(t))
	require.NoError(t, err)

	course, lesson, err := st.GetSummaries(ctx, "cs101", "loops-1")
	require.NoError(t, err)
	assert.Equal(t, "course summary text", course)
	assert.Equal(t, "lesson summary text", lesson)

	toc, err := st.GetTOC(ctx, "cs101")
	require.NoError(t, err)
	assert.Contains(t, toc, "Loops")

	courses := st.Courses()
	require.Len(t, courses, 1)
	assert.Equal(t, "Intro to Programming", courses[0].Title)
}

func TestGetSummaries_UnknownKeysDegrade(t *testing.T) {
	ctx := context.Background()
	st, err := Load(ctx, newTestDataset(t))
	require.NoError(t, err)

	course, lesson, err := st.GetSummaries(ctx, "nope", "loops-1")
	require.NoError(t, err)
	assert.Empty(t, course)
	assert.Empty(t, lesson)

	course, lesson, err = st.GetSummaries(ctx, "cs101", "nope")
	require.NoError(t, err)
	assert.NotEmpty(t, course)
	assert.Empty(t, lesson)
}

func TestGetChunkText(t *testing.T) {
	ctx := context.Background()
	st, err := Load(ctx, newTestDataset(t))
	require.NoError(t, err)

	hash := ChunkHash("cs101", "for loops repeat a block")
	text, err := st.GetChunkText(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "for loops repeat a block", text)

	_, err = st.GetChunkText(ctx, "x")
	assert.Error(t, err)
}
