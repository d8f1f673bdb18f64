package ingest

import (
	"strings"

	"ai-course-tutor/internal/core/token"
)

// splitChunks packs paragraphs into chunks of at most maxTokens. A single
// oversized paragraph becomes its own chunk rather than being cut
// mid-sentence; retrieval quality degrades less than a truncated thought.
func splitChunks(text string, counter token.Counter, maxTokens int) []string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentTokens = 0
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n := counter.Count(p)
		if currentTokens > 0 && currentTokens+n > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		currentTokens += n
	}
	flush()
	return chunks
}
