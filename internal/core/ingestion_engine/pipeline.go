package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/core/pdf"
	"github.com/edurag-project/backend/internal/models"
)

// minTextLength is the minimum extracted-text size for a material to be
// worth chunking.
const minTextLength = 100

// insertBatchSize bounds how many chunk rows go into one insert transaction.
const insertBatchSize = 100

var (
	ErrInsufficientText = errors.New("material appears to be empty or contains too little text")
	ErrNoChunks         = errors.New("no chunks created from material text")
)

// TextExtractor turns raw PDF bytes into text plus extraction metadata.
// Satisfied by pdf.Extractor.
type TextExtractor interface {
	ExtractSmart(ctx context.Context, data []byte) (string, *pdf.Meta, error)
}

// IngestConfig tunes the pipeline.
//
// ChunkSize:    target tokens per chunk (e.g., 500).
// ChunkOverlap: token overlap between consecutive chunks (e.g., 50).
// Bucket:       object-store bucket holding uploaded files.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Bucket       string
}

// MaterialIngestor drives material → text → chunks → embeddings → rows,
// managing the pending/processing/completed/failed state machine.
//
// jobs is an in-memory bounded queue of material IDs; inflight serializes
// ingestion per material so a double upload or retry race cannot run the
// pipeline twice concurrently for the same material.
type MaterialIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  *BatchEmbedder
	extractor TextExtractor
	chunker   *Chunker
	cfg       *IngestConfig

	jobs chan string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewMaterialIngestor constructs the ingestor with a bounded job queue (64).
func NewMaterialIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, extractor TextExtractor, chunker *Chunker, cfg *IngestConfig) *MaterialIngestor {
	return &MaterialIngestor{
		db:        db,
		obj:       obj,
		embedder:  NewBatchEmbedder(emb),
		extractor: extractor,
		chunker:   chunker,
		cfg:       cfg,
		jobs:      make(chan string, 64),
		inflight:  make(map[string]struct{}),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until the
// context is cancelled.
func (i *MaterialIngestor) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= numWorkers; w++ {
		w := w
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					log.Printf("MaterialIngestor: worker %d shutting down", w)
					return nil
				case materialID := <-i.jobs:
					log.Printf("MaterialIngestor: worker %d processing material %s", w, materialID)
					if err := i.ProcessOne(gctx, materialID); err != nil {
						log.Printf("MaterialIngestor: material %s failed: %v", materialID, err)
					}
					i.release(materialID)
				}
			}
		})
	}
	go func() { _ = g.Wait() }()
}

// Enqueue schedules a material for ingestion without blocking the caller.
// Returns false when the material is already queued or being processed
// (the duplicate trigger is dropped rather than racing the in-flight run)
// or when the job queue is full; a rejected material can be re-triggered
// once the queue drains.
func (i *MaterialIngestor) Enqueue(materialID string) bool {
	i.mu.Lock()
	if _, busy := i.inflight[materialID]; busy {
		i.mu.Unlock()
		log.Printf("MaterialIngestor: material %s already in flight, dropping duplicate trigger", materialID)
		return false
	}
	i.inflight[materialID] = struct{}{}
	i.mu.Unlock()

	select {
	case i.jobs <- materialID:
		return true
	default:
		i.release(materialID)
		log.Printf("MaterialIngestor: job queue full, material %s not scheduled", materialID)
		return false
	}
}

func (i *MaterialIngestor) release(materialID string) {
	i.mu.Lock()
	delete(i.inflight, materialID)
	i.mu.Unlock()
}

// ProcessOne runs the full pipeline for one material:
// extract, guard, chunk, embed, persist, then mark completed. Any stage
// failure marks the material failed (best-effort) and returns the error.
func (i *MaterialIngestor) ProcessOne(ctx context.Context, materialID string) error {
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Minute)
	defer cancel()

	material, err := i.db.GetMaterialByID(procCtx, materialID)
	if err != nil {
		return fmt.Errorf("load material: %w", err)
	}
	if material == nil {
		return fmt.Errorf("material not found: %s", materialID)
	}

	if err := i.db.UpdateMaterialStatus(procCtx, materialID, models.StatusProcessing); err != nil {
		return fmt.Errorf("set processing status: %w", err)
	}

	if err := i.run(procCtx, material); err != nil {
		i.markFailed(procCtx, materialID)
		return fmt.Errorf("material processing failed: %w", err)
	}
	return nil
}

func (i *MaterialIngestor) run(ctx context.Context, material *models.Material) error {
	if material.FileURL == nil || *material.FileURL == "" {
		return errors.New("material has no stored file")
	}

	data, err := i.obj.GetFile(ctx, i.cfg.Bucket, *material.FileURL)
	if err != nil {
		return fmt.Errorf("fetch stored file: %w", err)
	}

	text, meta, err := i.extractor.ExtractSmart(ctx, data)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if len(strings.TrimSpace(text)) < minTextLength {
		return ErrInsufficientText
	}

	chunks := i.chunker.Chunk(text, meta)
	if len(chunks) == 0 {
		return ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for idx := range chunks {
		texts[idx] = chunks[idx].ChunkText
	}

	embeddings, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count %d does not match chunk count %d", len(embeddings), len(chunks))
	}

	now := time.Now()
	for idx := range chunks {
		chunks[idx].ID = uuid.NewString()
		chunks[idx].MaterialID = material.ID
		chunks[idx].Embedding = embeddings[idx]
		chunks[idx].CreatedAt = now
	}

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := i.db.InsertMaterialChunks(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("store chunks %d-%d: %w", start, end, err)
		}
	}

	if err := i.db.MarkMaterialCompleted(ctx, material.ID, len(chunks)); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	log.Printf("MaterialIngestor: material %s completed, %d chunks (%d pages, method %s)",
		material.ID, len(chunks), meta.TotalPages, meta.Method)
	return nil
}

// markFailed is best-effort: a failure to record the failure is logged,
// not escalated. Status consistency under storage outages is recovered by
// inspection or re-trigger, not guaranteed here.
func (i *MaterialIngestor) markFailed(ctx context.Context, materialID string) {
	if err := i.db.UpdateMaterialStatus(ctx, materialID, models.StatusFailed); err != nil {
		log.Printf("MaterialIngestor: could not mark material %s failed: %v", materialID, err)
	}
}

// DeleteChunks removes all chunk rows for a material and resets it to the
// pre-ingestion baseline (pending, zero chunks, no processed timestamp),
// regardless of whether the material previously completed or failed. This
// is the explicit re-ingest path.
func (i *MaterialIngestor) DeleteChunks(ctx context.Context, materialID string) (int, error) {
	deleted, err := i.db.DeleteMaterialChunks(ctx, materialID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	if err := i.db.ResetMaterial(ctx, materialID); err != nil {
		return deleted, fmt.Errorf("reset material: %w", err)
	}
	return deleted, nil
}

var _ Ingestor = (*MaterialIngestor)(nil)
