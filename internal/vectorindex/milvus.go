// Package vectorindex backs the retriever with a Milvus collection of
// content-addressed chunk embeddings.
package vectorindex

import (
	"context"
	"fmt"
	"time"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/retriever"
	"ai-course-tutor/pkg/logger"
)

const (
	fieldID            = "id"
	fieldCourseKey     = "course_key"
	fieldActivityKey   = "activity_key"
	fieldCourseTitle   = "course_title"
	fieldLessonTitle   = "lesson_title"
	fieldActivityTitle = "activity_title"
	fieldEmbedding     = "embedding"

	hashLength     = 64
	keyMaxLength   = 256
	titleMaxLength = 512

	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

type Config struct {
	Address    string
	Collection string
	MetricType string
	SearchEf   int
	// Dim is the embedding width; must match the embedding model.
	Dim int
}

// Milvus holds one long-lived connection. Vectors are normalized, the
// metric is inner product, and distance is reported as 1 - score so that
// smaller always means nearer.
type Milvus struct {
	cli        milvusclient.Client
	collection string
	metricType milvusentity.MetricType
	searchEf   int
	dim        int
}

// Connect dials Milvus with retries so the service survives the index
// coming up after it.
func Connect(ctx context.Context, cfg Config) (*Milvus, error) {
	if cfg.SearchEf <= 0 {
		cfg.SearchEf = 64
	}
	if cfg.MetricType == "" {
		cfg.MetricType = string(milvusentity.IP)
	}

	var cli milvusclient.Client
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		cli, err = milvusclient.NewClient(ctx, milvusclient.Config{Address: cfg.Address})
		if err == nil {
			break
		}
		logger.Warn("%v: connect attempt %d/%d failed: %v", config.ModuleMilvus, attempt, connectAttempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%v: connect %s: %w", config.ModuleMilvus, cfg.Address, err)
	}

	return &Milvus{
		cli:        cli,
		collection: cfg.Collection,
		metricType: milvusentity.MetricType(cfg.MetricType),
		searchEf:   cfg.SearchEf,
		dim:        cfg.Dim,
	}, nil
}

func (m *Milvus) Close() error { return m.cli.Close() }

// EnsureCollection creates the chunk collection and its HNSW index if
// absent, then loads it for search.
func (m *Milvus) EnsureCollection(ctx context.Context) error {
	exists, err := m.cli.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("%v: has collection: %w", config.ModuleMilvus, err)
	}
	if !exists {
		schema := milvusentity.NewSchema().WithName(m.collection).WithDescription("content-addressed course chunks")
		schema.WithField(milvusentity.NewField().WithName(fieldID).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(hashLength).WithIsPrimaryKey(true))
		schema.WithField(milvusentity.NewField().WithName(fieldCourseKey).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(keyMaxLength))
		schema.WithField(milvusentity.NewField().WithName(fieldActivityKey).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(keyMaxLength))
		schema.WithField(milvusentity.NewField().WithName(fieldCourseTitle).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(titleMaxLength))
		schema.WithField(milvusentity.NewField().WithName(fieldLessonTitle).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(titleMaxLength))
		schema.WithField(milvusentity.NewField().WithName(fieldActivityTitle).
			WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(titleMaxLength))
		schema.WithField(milvusentity.NewField().WithName(fieldEmbedding).
			WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(m.dim)))

		if err := m.cli.CreateCollection(ctx, schema, 2); err != nil {
			return fmt.Errorf("%v: create collection: %w", config.ModuleMilvus, err)
		}
		idx, err := milvusentity.NewIndexHNSW(m.metricType, 16, 200)
		if err != nil {
			return fmt.Errorf("%v: build index params: %w", config.ModuleMilvus, err)
		}
		if err := m.cli.CreateIndex(ctx, m.collection, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("%v: create index: %w", config.ModuleMilvus, err)
		}
		logger.Info("%v: created collection %s (dim=%d)", config.ModuleMilvus, m.collection, m.dim)
	}
	if err := m.cli.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("%v: load collection: %w", config.ModuleMilvus, err)
	}
	return nil
}

// Upsert writes chunks and their vectors keyed by content hash. Replaying
// the same chunks overwrites identical rows, so ingestion stays idempotent.
func (m *Milvus) Upsert(ctx context.Context, chunks []contextstore.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%v: %d chunks but %d vectors", config.ModuleMilvus, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	courseKeys := make([]string, len(chunks))
	activityKeys := make([]string, len(chunks))
	courseTitles := make([]string, len(chunks))
	lessonTitles := make([]string, len(chunks))
	activityTitles := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Hash
		courseKeys[i] = c.Metadata.CourseKey
		activityKeys[i] = c.Metadata.ActivityKey
		courseTitles[i] = c.Metadata.CourseTitle
		lessonTitles[i] = c.Metadata.LessonTitle
		activityTitles[i] = c.Metadata.ActivityTitle
	}

	_, err := m.cli.Upsert(ctx, m.collection, "",
		milvusentity.NewColumnVarChar(fieldID, ids),
		milvusentity.NewColumnVarChar(fieldCourseKey, courseKeys),
		milvusentity.NewColumnVarChar(fieldActivityKey, activityKeys),
		milvusentity.NewColumnVarChar(fieldCourseTitle, courseTitles),
		milvusentity.NewColumnVarChar(fieldLessonTitle, lessonTitles),
		milvusentity.NewColumnVarChar(fieldActivityTitle, activityTitles),
		milvusentity.NewColumnFloatVector(fieldEmbedding, m.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("%v: upsert %d chunks: %w", config.ModuleMilvus, len(chunks), err)
	}
	return nil
}

// Query implements the retriever's index capability.
func (m *Milvus) Query(ctx context.Context, vector []float32, f retriever.Filter, topK int) ([]retriever.Hit, error) {
	searchParam, err := milvusentity.NewIndexHNSWSearchParam(m.searchEf)
	if err != nil {
		return nil, fmt.Errorf("%v: search params: %w", config.ModuleMilvus, err)
	}

	expr := BuildExpr(f)
	outputFields := []string{fieldCourseKey, fieldActivityKey, fieldCourseTitle, fieldLessonTitle, fieldActivityTitle}

	start := time.Now()
	results, err := m.cli.Search(
		ctx,
		m.collection,
		nil,
		expr,
		outputFields,
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		fieldEmbedding,
		m.metricType,
		topK,
		searchParam,
	)
	if err != nil {
		logger.Error(err, "%v: search failed (expr=%s)", config.ModuleMilvus, expr)
		return nil, err
	}
	logger.Debug("%v: search done in %dms (expr=%s)", config.ModuleMilvus, time.Since(start).Milliseconds(), expr)

	if len(results) == 0 {
		return []retriever.Hit{}, nil
	}
	rs := results[0]

	hits := make([]retriever.Hit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		var h retriever.Hit
		if ids, ok := rs.IDs.(*milvusentity.ColumnVarChar); ok {
			h.ID = ids.Data()[i]
		}
		// inner product on unit vectors is in [-1, 1]; 1 - score puts the
		// nearest chunk at distance 0
		h.Distance = 1 - rs.Scores[i]

		for _, field := range rs.Fields {
			col, ok := field.(*milvusentity.ColumnVarChar)
			if !ok {
				continue
			}
			switch col.Name() {
			case fieldCourseKey:
				h.Metadata.CourseKey = col.Data()[i]
			case fieldActivityKey:
				h.Metadata.ActivityKey = col.Data()[i]
			case fieldCourseTitle:
				h.Metadata.CourseTitle = col.Data()[i]
			case fieldLessonTitle:
				h.Metadata.LessonTitle = col.Data()[i]
			case fieldActivityTitle:
				h.Metadata.ActivityTitle = col.Data()[i]
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// BuildExpr renders the scope filter as a Milvus boolean expression.
func BuildExpr(f retriever.Filter) string {
	if f.CourseKey == "" {
		return ""
	}
	if f.ActivityKey == "" {
		return fmt.Sprintf("%s == %q", fieldCourseKey, f.CourseKey)
	}
	return fmt.Sprintf("%s == %q && %s == %q", fieldCourseKey, f.CourseKey, fieldActivityKey, f.ActivityKey)
}
