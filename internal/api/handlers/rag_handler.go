package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/edurag-project/backend/internal/config"
	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/core/rag"
	"github.com/edurag-project/backend/internal/models"
)

type RagHandler struct {
	dbclient  core.DbClient
	retriever *rag.Retriever
	answerer  *rag.Answerer
	cfg       *config.Config
}

func NewRagHandler(db core.DbClient, retriever *rag.Retriever, answerer *rag.Answerer, cfg *config.Config) *RagHandler {
	return &RagHandler{dbclient: db, retriever: retriever, answerer: answerer, cfg: cfg}
}

type queryRequest struct {
	Question   string `json:"question"`
	CourseID   string `json:"course_id"`
	MaterialID string `json:"material_id"`
	TopK       int    `json:"top_k"`
}

// Query answers a question over the embedded chunks: embed the question,
// retrieve the most similar chunks, synthesize an answer with sources.
func (h *RagHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.cfg.TopK
	}

	chunks := h.retriever.Retrieve(ctx, req.Question, req.CourseID, req.MaterialID, req.TopK)

	answer := h.answerer.Answer(ctx, req.Question, chunks)

	sources := rag.Sources(chunks)
	if sources == nil {
		sources = []rag.Source{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":      answer,
		"sources":     sources,
		"chunks_used": len(chunks),
		"model":       h.cfg.GenModel,
	})
}

// Chat is the legacy whole-document endpoint: no vector retrieval, the
// filtered materials' raw text is the context. Model failures degrade to
// keyword search instead of erroring.
func (h *RagHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	var materials []models.Material
	if req.MaterialID != "" {
		m, err := h.dbclient.GetMaterialByID(ctx, req.MaterialID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if m != nil {
			materials = []models.Material{*m}
		}
	} else {
		var err error
		materials, err = h.dbclient.ListMaterials(ctx, req.CourseID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	result := h.answerer.AnswerLegacy(ctx, req.Question, materials)
	writeJSON(w, http.StatusOK, result)
}

// Health reports whether the retrieval path is usable: chunk counts,
// material processing progress and the configured models.
func (h *RagHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalChunks, err := h.dbclient.CountMaterialChunks(ctx)
	if err != nil {
		log.Printf("rag health check failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	totalMaterials, processedMaterials, err := h.dbclient.CountMaterials(ctx)
	if err != nil {
		log.Printf("rag health check failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"vector_search":       "enabled",
		"has_chunks":          totalChunks > 0,
		"total_chunks":        totalChunks,
		"total_materials":     totalMaterials,
		"processed_materials": processedMaterials,
		"generation_model":    h.cfg.GenModel,
		"embedding_model":     h.cfg.EmbedModel,
	})
}
