package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/edurag-project/backend/internal/core"
)

// maxEmbedBatch is the embedding API's per-request input cap.
const maxEmbedBatch = 2048

// BatchEmbedder wraps an EmbeddingProvider with request batching. Output is
// order-preserving and one vector per input; any batch failure aborts the
// whole call with no partial result.
type BatchEmbedder struct {
	provider  core.EmbeddingProvider
	batchSize int
}

func NewBatchEmbedder(provider core.EmbeddingProvider) *BatchEmbedder {
	return &BatchEmbedder{provider: provider, batchSize: maxEmbedBatch}
}

func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := b.provider.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}
