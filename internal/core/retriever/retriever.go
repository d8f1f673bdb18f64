// Package retriever performs the scoped similarity search of one turn:
// embed the restated question, query the vector index under a
// classification-derived filter, and resolve hits to stored chunk text.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/budget"
	"ai-course-tutor/internal/core/classify"
	"ai-course-tutor/internal/core/fault"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/pkg/logger"
)

// Filter restricts a vector search to a course or to one activity in it.
type Filter struct {
	CourseKey   string
	ActivityKey string
}

// Hit is one raw index result.
type Hit struct {
	ID       string
	Distance float32
	Metadata contextstore.ChunkMetadata
}

// Index is the vector-search capability. Results come back ordered by
// ascending distance (nearest first).
type Index interface {
	Query(ctx context.Context, vector []float32, f Filter, topK int) ([]Hit, error)
}

// Embedder turns a query string into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkTexts resolves a content hash to its stored text.
type ChunkTexts interface {
	GetChunkText(ctx context.Context, hash string) (string, error)
}

// ScoredChunk is a resolved chunk with its search distance.
type ScoredChunk struct {
	contextstore.Chunk
	Distance float32
}

// Result is ordered by ascending distance, size at most the scope's K.
type Result []ScoredChunk

// Texts returns the chunk texts in result order.
func (r Result) Texts() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Text
	}
	return out
}

// Config fixes the per-scope fan-out and the embedding budget.
type Config struct {
	PlatformCourseKey string
	EmbeddingModel    string
	EmbeddingWindow   int
	CourseTopK        int
	LectureTopK       int
	PlatformTopK      int
}

func (c *Config) applyDefaults() {
	if c.CourseTopK == 0 {
		c.CourseTopK = 2
	}
	if c.LectureTopK == 0 {
		c.LectureTopK = 10
	}
	if c.PlatformTopK == 0 {
		c.PlatformTopK = 2
	}
	if c.PlatformCourseKey == "" {
		c.PlatformCourseKey = "platform-docs"
	}
}

type Retriever struct {
	cfg      Config
	embedder Embedder
	index    Index
	chunks   ChunkTexts
	counter  token.Counter
}

func New(cfg Config, embedder Embedder, index Index, chunks ChunkTexts, counter token.Counter) *Retriever {
	cfg.applyDefaults()
	return &Retriever{cfg: cfg, embedder: embedder, index: index, chunks: chunks, counter: counter}
}

// ScopeFilter derives the index filter and fan-out for a classification.
// ok is false for unsure, which disables retrieval entirely.
func (r *Retriever) ScopeFilter(class classify.Classification, courseKey, activityKey string) (Filter, int, bool) {
	switch class {
	case classify.Course:
		return Filter{CourseKey: courseKey}, r.cfg.CourseTopK, true
	case classify.CurrentLecture:
		return Filter{CourseKey: courseKey, ActivityKey: activityKey}, r.cfg.LectureTopK, true
	case classify.Platform:
		return Filter{CourseKey: r.cfg.PlatformCourseKey}, r.cfg.PlatformTopK, true
	default:
		return Filter{}, 0, false
	}
}

// Retrieve runs the search. An unsure classification short-circuits to an
// empty result without an embedding call. A query that alone exceeds the
// embedding model's window is a hard error raised before any network
// call; it is the one retrieval-time condition that stops the pipeline.
func (r *Retriever) Retrieve(ctx context.Context, query string, class classify.Classification, courseKey, activityKey string) (Result, error) {
	filter, topK, ok := r.ScopeFilter(class, courseKey, activityKey)
	if !ok {
		return Result{}, nil
	}

	if err := budget.CheckTokens(r.counter.Count(query), r.cfg.EmbeddingModel, r.cfg.EmbeddingWindow, 0); err != nil {
		return nil, err
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fault.Provider("embedding", err)
	}

	hits, err := r.index.Query(ctx, vector, filter, topK)
	if err != nil {
		return nil, fault.Provider("search", err)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	result := make(Result, 0, len(hits))
	for _, h := range hits {
		text, err := r.chunks.GetChunkText(ctx, h.ID)
		if err != nil {
			return nil, fault.Provider("chunk-store", fmt.Errorf("%v: resolve chunk %s: %w", config.ModuleRetriever, h.ID, err))
		}
		result = append(result, ScoredChunk{
			Chunk:    contextstore.Chunk{Hash: h.ID, Text: text, Metadata: h.Metadata},
			Distance: h.Distance,
		})
	}
	logger.Debug("%v: retrieved %d chunks for scope %s", config.ModuleRetriever, len(result), class)
	return result, nil
}
