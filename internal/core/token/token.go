// Package token provides token counting for prompt budget enforcement,
// backed by tiktoken-go's cl100k_base encoding with a character-based
// heuristic fallback when the encoding cannot be initialized.
package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for a piece of text. Implementations must be
// deterministic and side-effect free; empty input counts as zero.
type Counter interface {
	Count(text string) int
}

// Accountant is the default Counter. The zero value is not usable;
// construct with NewAccountant.
type Accountant struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewAccountant returns an Accountant using the cl100k_base encoding.
func NewAccountant() *Accountant {
	a := &Accountant{}
	a.init()
	return a
}

func (a *Accountant) init() {
	a.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			a.encoding = enc
		}
	})
}

// Count returns the token count for text. When tiktoken is unavailable it
// falls back to a max(runes/4, words) estimate.
func (a *Accountant) Count(text string) int {
	if text == "" {
		return 0
	}
	if a.encoding != nil {
		return len(a.encoding.Encode(text, nil, nil))
	}
	return estimate(text)
}

func estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	runes := len([]rune(trimmed))
	words := len(strings.Fields(trimmed))
	n := runes / 4
	if n < words {
		n = words
	}
	if n == 0 {
		n = 1
	}
	return n
}
