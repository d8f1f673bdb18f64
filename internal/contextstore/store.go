// Package contextstore reads the pre-built course dataset: per-course
// summaries, tables of contents and content-addressed chunk text. The
// dataset is produced offline; everything here is read-only and safe for
// concurrent use.
package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/logger"
)

// Store serves dataset reads for the query-time pipeline.
type Store struct {
	fs      FileSet
	courses map[string]CourseSummary
}

// Load opens the dataset at baseURL and reads its index and per-course
// summaries into memory. Summary and chunk text stay in the fileset and
// are read on demand.
func Load(ctx context.Context, baseURL string) (*Store, error) {
	fs, err := OpenFileSet(baseURL)
	if err != nil {
		return nil, err
	}

	raw, err := fs.ReadBytes(ctx, "index.json")
	if err != nil {
		return nil, fmt.Errorf("%v: read index.json: %w", config.ModuleContext, err)
	}
	var idx datasetIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("%v: parse index.json: %w", config.ModuleContext, err)
	}

	st := &Store{fs: fs, courses: make(map[string]CourseSummary, len(idx.Courses))}
	for _, courseKey := range idx.Courses {
		raw, err := fs.ReadBytes(ctx, courseKey+"/summary.json")
		if err != nil {
			return nil, fmt.Errorf("%v: read summary for %s: %w", config.ModuleContext, courseKey, err)
		}
		var cs CourseSummary
		if err := json.Unmarshal(raw, &cs); err != nil {
			return nil, fmt.Errorf("%v: parse summary for %s: %w", config.ModuleContext, courseKey, err)
		}
		st.courses[cs.CourseKey] = cs
	}
	logger.Info("%v: dataset loaded: %d courses", config.ModuleContext, len(st.courses))
	return st, nil
}

// Courses lists the loaded courses sorted by key.
func (s *Store) Courses() []CourseSummary {
	out := make([]CourseSummary, 0, len(s.courses))
	for _, cs := range s.courses {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseKey < out[j].CourseKey })
	return out
}

// GetSummaries returns the course and lesson summary texts for the given
// keys. Unknown keys yield empty strings, not an error; the pipeline
// degrades to less context rather than failing the turn.
func (s *Store) GetSummaries(ctx context.Context, courseKey, activityKey string) (courseSummary, lessonSummary string, err error) {
	cs, ok := s.courses[courseKey]
	if !ok {
		logger.Warn("%v: unknown course key: %s", config.ModuleContext, courseKey)
		return "", "", nil
	}
	courseSummary, err = s.fs.ReadString(ctx, courseKey+"/"+cs.SummaryTextPath)
	if err != nil {
		return "", "", fmt.Errorf("%v: read course summary: %w", config.ModuleContext, err)
	}
	as, ok := cs.Activities[activityKey]
	if !ok {
		logger.Warn("%v: unknown activity key %s in course %s", config.ModuleContext, activityKey, courseKey)
		return courseSummary, "", nil
	}
	lessonSummary, err = s.fs.ReadString(ctx, courseKey+"/"+as.SummaryTextPath)
	if err != nil {
		return courseSummary, "", fmt.Errorf("%v: read lesson summary: %w", config.ModuleContext, err)
	}
	return courseSummary, lessonSummary, nil
}

// GetTOC returns the course's table-of-contents text.
func (s *Store) GetTOC(ctx context.Context, courseKey string) (string, error) {
	cs, ok := s.courses[courseKey]
	if !ok {
		return "", nil
	}
	return s.fs.ReadString(ctx, courseKey+"/"+cs.TocTextPath)
}

// GetChunkText returns the stored text for a content hash.
func (s *Store) GetChunkText(ctx context.Context, hash string) (string, error) {
	if len(hash) < 2 {
		return "", fmt.Errorf("%v: invalid chunk hash %q", config.ModuleContext, hash)
	}
	return s.fs.ReadString(ctx, chunkPath(hash))
}
