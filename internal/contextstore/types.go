package contextstore

import (
	"crypto/sha256"
	"encoding/hex"
)

// ActivitySummary locates the stored summary of one activity (lesson).
type ActivitySummary struct {
	Title           string `json:"title"`
	SummaryTextPath string `json:"summary_text_path"`
}

// CourseSummary is the per-course index entry of the dataset.
type CourseSummary struct {
	CourseKey       string                     `json:"course_key"`
	Title           string                     `json:"title"`
	SummaryTextPath string                     `json:"summary_text_path"`
	TocTextPath     string                     `json:"toc_text_path"`
	Activities      map[string]ActivitySummary `json:"activities"`
}

// ChunkMetadata is the scope metadata attached to every stored chunk.
type ChunkMetadata struct {
	CourseKey     string `json:"course_key"`
	ActivityKey   string `json:"activity_key"`
	CourseTitle   string `json:"course_title"`
	LessonTitle   string `json:"lesson_title"`
	ActivityTitle string `json:"activity_title"`
}

// Chunk is one content-addressed unit of retrievable course text.
type Chunk struct {
	Hash     string
	Text     string
	Metadata ChunkMetadata
}

// ChunkHash derives the content address for a chunk. The course key is
// part of the hashed content so identical text in two courses stays
// distinct, while re-ingesting unchanged material is a no-op.
func ChunkHash(courseKey, text string) string {
	sum := sha256.Sum256([]byte(courseKey + "\n" + text))
	return hex.EncodeToString(sum[:])
}

// chunkPath shards chunk files by the first two hash characters.
func chunkPath(hash string) string {
	return "chunks/" + hash[:2] + "/" + hash + ".txt"
}

type datasetIndex struct {
	Courses []string `json:"courses"`
}
