package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return []float32{0.1, 0.2}, f.err
}

type fakeIndex struct {
	calls      int
	lastFilter Filter
	lastTopK   int
	hits       []Hit
	err        error
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, filter Filter, topK int) ([]Hit, error) {
	f.calls++
	f.lastFilter = filter
	f.lastTopK = topK
	return f.hits, f.err
}

type fakeChunks map[string]string

func (f fakeChunks) GetChunkText(_ context.Context, hash string) (string, error) {
	return f[hash], nil
}

type fieldCounter struct{}

func (fieldCounter) Count(text string) int { return len(strings.Fields(text)) }

func newTestRetriever(index *fakeIndex, embedder *fakeEmbedder, chunks fakeChunks) *Retriever {
	cfg := Config{EmbeddingModel: "text-embedding-3-small", EmbeddingWindow: 10}
	return New(cfg, embedder, index, chunks, fieldCounter{})
}

func TestRetrieve_UnsureShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	r := newTestRetriever(index, embedder, fakeChunks{})

	got, err := r.Retrieve(context.Background(), "anything", classify.Unsure, "cs101", "loops-1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, embedder.calls, "unsure must not trigger an embedding call")
	assert.Zero(t, index.calls)
}

func TestRetrieve_LectureScopeFilterAndK(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	r := newTestRetriever(index, embedder, fakeChunks{})

	_, err := r.Retrieve(context.Background(), "what is a loop", classify.CurrentLecture, "cs101", "loops-1")
	require.NoError(t, err)
	assert.Equal(t, Filter{CourseKey: "cs101", ActivityKey: "loops-1"}, index.lastFilter)
	assert.Equal(t, 10, index.lastTopK)
}

func TestRetrieve_CourseAndPlatformScopes(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	r := newTestRetriever(index, embedder, fakeChunks{})

	_, err := r.Retrieve(context.Background(), "what is this course about", classify.Course, "cs101", "loops-1")
	require.NoError(t, err)
	assert.Equal(t, Filter{CourseKey: "cs101"}, index.lastFilter)
	assert.Equal(t, 2, index.lastTopK)

	_, err = r.Retrieve(context.Background(), "how do I reset my password", classify.Platform, "cs101", "loops-1")
	require.NoError(t, err)
	assert.Equal(t, Filter{CourseKey: "platform-docs"}, index.lastFilter)
	assert.Equal(t, 2, index.lastTopK)
}

func TestRetrieve_OverflowBeforeAnyNetworkCall(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	r := newTestRetriever(index, embedder, fakeChunks{})

	long := strings.Repeat("word ", 11)
	_, err := r.Retrieve(context.Background(), long, classify.Course, "cs101", "")
	var overflow *fault.ContextOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Zero(t, embedder.calls, "overflow must be raised before the embedding call")
	assert.Zero(t, index.calls, "overflow must be raised before the index query")
}

func TestRetrieve_ProviderFailuresAreTyped(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("upstream 500")}
	index := &fakeIndex{}
	r := newTestRetriever(index, embedder, fakeChunks{})

	_, err := r.Retrieve(context.Background(), "loops", classify.Course, "cs101", "")
	var perr *fault.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "embedding", perr.Op)

	embedder = &fakeEmbedder{}
	index = &fakeIndex{err: errors.New("connection refused")}
	r = newTestRetriever(index, embedder, fakeChunks{})

	_, err = r.Retrieve(context.Background(), "loops", classify.Course, "cs101", "")
	perr = nil
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "search", perr.Op)
}

func TestRetrieve_OrderedByAscendingDistance(t *testing.T) {
	meta := contextstore.ChunkMetadata{CourseKey: "cs101"}
	index := &fakeIndex{hits: []Hit{
		{ID: "bb", Distance: 0.7, Metadata: meta},
		{ID: "aa", Distance: 0.2, Metadata: meta},
		{ID: "cc", Distance: 0.4, Metadata: meta},
	}}
	chunks := fakeChunks{"aa": "text-a", "bb": "text-b", "cc": "text-c"}
	r := newTestRetriever(index, &fakeEmbedder{}, chunks)

	got, err := r.Retrieve(context.Background(), "loops", classify.Course, "cs101", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"text-a", "text-c", "text-b"}, got.Texts())
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}
