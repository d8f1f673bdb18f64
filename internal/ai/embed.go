package ai

import (
	"context"
	"errors"
	"fmt"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/logger"
)

const embedBatchSize = 100

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embedder binds the client to one embedding model. It serves both the
// per-question query path and batch ingestion.
type Embedder struct {
	client *Client
	model  string
	dims   int
}

func NewEmbedder(client *Client, model string) (*Embedder, error) {
	m, err := client.registry.Lookup(model)
	if err != nil {
		return nil, err
	}
	if m.Kind != KindEmbedding {
		return nil, fmt.Errorf("%v: %s is not an embedding model", config.ModuleOpenAI, model)
	}
	return &Embedder{client: client, model: model, dims: m.Dimensions}, nil
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%v: empty embedding input", config.ModuleOpenAI)
	}
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%v: no embedding returned", config.ModuleOpenAI)
	}
	return vecs[0], nil
}

// EmbedBatch embeds inputs in chunks of up to 100, preserving order.
func (e *Embedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	var all [][]float32
	for i := 0; i < len(inputs); i += embedBatchSize {
		j := i + embedBatchSize
		if j > len(inputs) {
			j = len(inputs)
		}
		batch := inputs[i:j]
		logger.WithFields(map[string]interface{}{
			"model":       e.model,
			"batch_start": i,
			"batch_size":  len(batch),
		}).Debug("embedding batch start")

		vectors, err := e.embedBatch(ctx, batch)
		if err != nil {
			logger.Error(err, "%v: embedding batch %d..%d failed", config.ModuleOpenAI, i, j)
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	client, err := e.client.forModel(e.model)
	if err != nil {
		return nil, err
	}
	req := embeddingRequest{Model: e.model, Input: batch}
	var out embeddingResponse
	if err := client.Post(ctx, "/embeddings", req, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}
	vectors := make([][]float32, len(out.Data))
	for i := range out.Data {
		src := out.Data[i].Embedding
		vec := make([]float32, len(src))
		for k := range src {
			vec[k] = float32(src[k])
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions reports the model's vector width for collection schemas.
func (e *Embedder) Dimensions() int { return e.dims }
