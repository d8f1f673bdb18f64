// Package querycontext is the observability record of one turn: the
// system-message parts as assembled, the retrieved chunk metadata, and a
// token count per named budget category. It is a pure side-channel and
// never influences the outcome of a turn.
package querycontext

import (
	"ai-course-tutor/config"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/internal/core/token"
	"ai-course-tutor/pkg/logger"
)

// RetrievedChunk is chunk metadata with the search distance attached.
type RetrievedChunk struct {
	contextstore.ChunkMetadata
	Distance float32 `json:"distance"`
}

type QueryContext struct {
	ChunkMetadata []RetrievedChunk `json:"chunk_metadata"`
	SystemMessage string           `json:"system_message"`
	TokenSizes    map[string]int   `json:"token_sizes"`
}

func New() *QueryContext {
	return &QueryContext{TokenSizes: map[string]int{}}
}

// AddChunkMetadata records one retrieved chunk with its distance.
func (qc *QueryContext) AddChunkMetadata(meta contextstore.ChunkMetadata, distance float32) {
	qc.ChunkMetadata = append(qc.ChunkMetadata, RetrievedChunk{ChunkMetadata: meta, Distance: distance})
}

// AddTokens adds the token cost of message under the named category.
func (qc *QueryContext) AddTokens(name, message string, counter token.Counter) {
	qc.TokenSizes[name] += counter.Count(message)
}

// AddSystemMessagePart accounts the part under its name and appends its
// text to the accumulated system message, in call order, so the record
// reconstructs the message exactly as sent.
func (qc *QueryContext) AddSystemMessagePart(name, message string, counter token.Counter) {
	qc.AddTokens(name, message, counter)
	qc.SystemMessage += message
}

// TotalTokens sums all recorded categories.
func (qc *QueryContext) TotalTokens() int {
	total := 0
	for _, n := range qc.TokenSizes {
		total += n
	}
	return total
}

// ActivityKeys lists the activity key of every retrieved chunk.
func (qc *QueryContext) ActivityKeys() []string {
	keys := make([]string, 0, len(qc.ChunkMetadata))
	for _, m := range qc.ChunkMetadata {
		keys = append(keys, m.ActivityKey)
	}
	return keys
}

// LogTokenSizes writes the per-category accounting at debug level.
func (qc *QueryContext) LogTokenSizes() {
	for name, size := range qc.TokenSizes {
		logger.Debug("%v: token size for %s: %d", config.ModuleEngine, name, size)
	}
}
