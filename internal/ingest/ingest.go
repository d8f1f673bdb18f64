// Package ingest builds the course dataset offline: it chunks activity
// text, embeds new chunks, upserts them into the vector index and writes
// the content-addressed files the context store serves at query time.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/pkg/logger"
)

// Activity is one lesson unit of source material.
type Activity struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	LessonTitle string `json:"lesson_title"`
	Summary     string `json:"summary"`
	Text        string `json:"text"`
}

// Course is the full source bundle for one course.
type Course struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary"`
	TOC        string     `json:"toc"`
	Activities []Activity `json:"activities"`
}

// Embedder is the batch embedding capability ingestion consumes.
type Embedder interface {
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
}

// VectorWriter upserts chunk vectors keyed by content hash.
type VectorWriter interface {
	Upsert(ctx context.Context, chunks []contextstore.Chunk, vectors [][]float32) error
}

type Stats struct {
	Chunks   int
	Embedded int
	Skipped  int
}

// Ingestor writes one local dataset directory. Chunk files double as the
// idempotence marker: a hash that already has a file on disk is assumed
// embedded and indexed, so replays only pay for genuinely new content.
type Ingestor struct {
	baseDir        string
	embedder       Embedder
	index          VectorWriter
	counter        token.Counter
	maxChunkTokens int
}

func New(baseDir string, embedder Embedder, index VectorWriter, counter token.Counter) *Ingestor {
	return &Ingestor{
		baseDir:        baseDir,
		embedder:       embedder,
		index:          index,
		counter:        counter,
		maxChunkTokens: 500,
	}
}

// IngestCourse processes one course bundle end to end.
func (ing *Ingestor) IngestCourse(ctx context.Context, course Course) (Stats, error) {
	var stats Stats
	if course.Key == "" {
		return stats, fmt.Errorf("%v: course key is empty", config.ModuleIngest)
	}

	var newChunks []contextstore.Chunk
	for _, act := range course.Activities {
		for _, text := range splitChunks(act.Text, ing.counter, ing.maxChunkTokens) {
			stats.Chunks++
			hash := contextstore.ChunkHash(course.Key, text)
			path := filepath.Join(ing.baseDir, "chunks", hash[:2], hash+".txt")
			if _, err := os.Stat(path); err == nil {
				stats.Skipped++
				continue
			}
			newChunks = append(newChunks, contextstore.Chunk{
				Hash: hash,
				Text: text,
				Metadata: contextstore.ChunkMetadata{
					CourseKey:     course.Key,
					ActivityKey:   act.Key,
					CourseTitle:   course.Title,
					LessonTitle:   act.LessonTitle,
					ActivityTitle: act.Title,
				},
			})
		}
	}

	if len(newChunks) > 0 {
		texts := make([]string, len(newChunks))
		for i, c := range newChunks {
			texts[i] = c.Text
		}
		vectors, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("%v: embed %d chunks: %w", config.ModuleIngest, len(newChunks), err)
		}
		if err := ing.index.Upsert(ctx, newChunks, vectors); err != nil {
			return stats, err
		}
		// chunk files are written only after the index accepted the
		// vectors; a crash in between re-embeds on the next run instead
		// of leaving unindexed files behind
		for _, c := range newChunks {
			if err := ing.writeFile(filepath.Join("chunks", c.Hash[:2], c.Hash+".txt"), c.Text); err != nil {
				return stats, err
			}
		}
		stats.Embedded = len(newChunks)
	}

	if err := ing.writeCourseFiles(course); err != nil {
		return stats, err
	}
	if err := ing.addToIndex(course.Key); err != nil {
		return stats, err
	}

	logger.Info("%v: course %s: %d chunks (%d embedded, %d skipped)",
		config.ModuleIngest, course.Key, stats.Chunks, stats.Embedded, stats.Skipped)
	return stats, nil
}

func (ing *Ingestor) writeCourseFiles(course Course) error {
	summary := contextstore.CourseSummary{
		CourseKey:       course.Key,
		Title:           course.Title,
		SummaryTextPath: "summary.txt",
		TocTextPath:     "toc.txt",
		Activities:      make(map[string]contextstore.ActivitySummary, len(course.Activities)),
	}
	if err := ing.writeFile(filepath.Join(course.Key, "summary.txt"), course.Summary); err != nil {
		return err
	}
	if err := ing.writeFile(filepath.Join(course.Key, "toc.txt"), course.TOC); err != nil {
		return err
	}
	for _, act := range course.Activities {
		rel := filepath.Join("activities", act.Key+".txt")
		if err := ing.writeFile(filepath.Join(course.Key, rel), act.Summary); err != nil {
			return err
		}
		summary.Activities[act.Key] = contextstore.ActivitySummary{
			Title:           act.Title,
			SummaryTextPath: rel,
		}
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("%v: marshal summary for %s: %w", config.ModuleIngest, course.Key, err)
	}
	return ing.writeFile(filepath.Join(course.Key, "summary.json"), string(raw))
}

func (ing *Ingestor) addToIndex(courseKey string) error {
	indexPath := filepath.Join(ing.baseDir, "index.json")
	var idx struct {
		Courses []string `json:"courses"`
	}
	if raw, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(raw, &idx); err != nil {
			return fmt.Errorf("%v: parse index.json: %w", config.ModuleIngest, err)
		}
	}
	for _, k := range idx.Courses {
		if k == courseKey {
			return nil
		}
	}
	idx.Courses = append(idx.Courses, courseKey)
	sort.Strings(idx.Courses)

	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("%v: marshal index.json: %w", config.ModuleIngest, err)
	}
	return ing.writeFile("index.json", string(raw))
}

func (ing *Ingestor) writeFile(rel, content string) error {
	path := filepath.Join(ing.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%v: mkdir for %s: %w", config.ModuleIngest, rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%v: write %s: %w", config.ModuleIngest, rel, err)
	}
	return nil
}
