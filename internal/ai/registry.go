// Package ai wraps the OpenAI-compatible provider behind the small
// capability interfaces the pipeline consumes: plain and structured
// completions, streaming, and embeddings.
package ai

import (
	"fmt"
	"sort"
	"sync"

	"ai-course-tutor/config"
)

// ModelKind separates chat models from embedding models.
type ModelKind string

const (
	KindChat      ModelKind = "chat"
	KindEmbedding ModelKind = "embedding"
)

// ModelConfig describes one deployable model. AzureDeployment and
// APIVersion only matter when the provider is azure; the deployment
// defaults to the model name.
type ModelConfig struct {
	Name            string
	Kind            ModelKind
	ContextWindow   int
	AzureDeployment string
	APIVersion      string
	// Dimensions applies to embedding models only.
	Dimensions int
}

const defaultAPIVersion = "2024-06-01"

func defaultModels() []ModelConfig {
	return []ModelConfig{
		{Name: "gpt-4o", Kind: KindChat, ContextWindow: 128000},
		{Name: "gpt-4o-mini", Kind: KindChat, ContextWindow: 128000},
		{Name: "gpt-4.1", Kind: KindChat, ContextWindow: 128000},
		{Name: "gpt-3.5-turbo", Kind: KindChat, ContextWindow: 16385},
		{Name: "text-embedding-3-small", Kind: KindEmbedding, ContextWindow: 8191, Dimensions: 1536},
		{Name: "text-embedding-3-large", Kind: KindEmbedding, ContextWindow: 8191, Dimensions: 3072},
	}
}

// Registry maps model names to their configuration. It is populated at
// startup and read-only afterwards, but Register is still guarded so
// tests can extend it freely.
type Registry struct {
	mu     sync.RWMutex
	models map[string]ModelConfig
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]ModelConfig)}
	for _, m := range defaultModels() {
		r.Register(m)
	}
	return r
}

func (r *Registry) Register(m ModelConfig) {
	if m.AzureDeployment == "" {
		m.AzureDeployment = m.Name
	}
	if m.APIVersion == "" {
		m.APIVersion = defaultAPIVersion
	}
	r.mu.Lock()
	r.models[m.Name] = m
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (ModelConfig, error) {
	r.mu.RLock()
	m, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return ModelConfig{}, fmt.Errorf("%v: unknown model %q", config.ModuleOpenAI, name)
	}
	return m, nil
}

// ContextWindow reports the model's total token window.
func (r *Registry) ContextWindow(name string) (int, error) {
	m, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return m.ContextWindow, nil
}

// Names lists the registered models, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for name := range r.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
