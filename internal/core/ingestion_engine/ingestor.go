package ingestion_engine

import "context"

// Ingestor is the background pipeline turning an uploaded material into
// stored, embedded chunks.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(materialID string) bool
	ProcessOne(ctx context.Context, materialID string) error
	DeleteChunks(ctx context.Context, materialID string) (int, error)
}
