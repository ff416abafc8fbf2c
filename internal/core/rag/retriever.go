// Package rag retrieves relevant material chunks for a question and
// synthesizes an answer from them.
package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/core/ingestion_engine"
	"github.com/edurag-project/backend/internal/models"
)

// DefaultTopK is the default number of chunks per retrieval.
const DefaultTopK = 5

// SimilarityThreshold is the minimum cosine similarity for a chunk to be
// considered relevant.
const SimilarityThreshold = 0.3

// Retriever embeds a question and runs filtered similarity search against
// the stored chunk embeddings.
type Retriever struct {
	db        core.DbClient
	embedder  *ingestion_engine.BatchEmbedder
	threshold float64
}

func NewRetriever(db core.DbClient, emb core.EmbeddingProvider, threshold float64) *Retriever {
	if threshold <= 0 {
		threshold = SimilarityThreshold
	}
	return &Retriever{
		db:        db,
		embedder:  ingestion_engine.NewBatchEmbedder(emb),
		threshold: threshold,
	}
}

// Retrieve returns at most topK chunks ranked by descending similarity,
// every one at or above the similarity threshold, optionally restricted to
// a course or a single material. Retrieval infrastructure failures are
// logged and reported as an empty result: callers treat empty as "no
// information available", not as an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, courseID, materialID string, topK int) []models.RetrievedChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := r.embedder.Embed(ctx, []string{question})
	if err != nil || len(vecs) == 0 {
		log.Printf("rag: question embedding failed: %v", err)
		return nil
	}

	chunks, err := r.db.MatchMaterialChunks(ctx, vecs[0], r.threshold, topK, courseID, materialID)
	if err != nil {
		log.Printf("rag: similarity search failed: %v", err)
		return nil
	}

	log.Printf("rag: retrieved %d chunks for question %q", len(chunks), truncate(question, 50))
	return chunks
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Sources deduplicates the source materials of a chunk list, preserving
// rank order.
func Sources(chunks []models.RetrievedChunk) []Source {
	var out []Source
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if ch.MaterialID == "" || seen[ch.MaterialID] {
			continue
		}
		seen[ch.MaterialID] = true
		out = append(out, Source{
			MaterialID: ch.MaterialID,
			Title:      ch.MaterialTitle,
			Course:     fmt.Sprintf("%s - %s", ch.CourseCode, ch.CourseName),
			Author:     ch.Author,
			Page:       ch.Metadata.Page,
		})
	}
	return out
}

// Source identifies one material an answer drew from.
type Source struct {
	MaterialID string `json:"-"`
	Title      string `json:"title"`
	Course     string `json:"course"`
	Author     string `json:"author"`
	Page       int    `json:"page,omitempty"`
}
