package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edurag-project/backend/internal/config"
	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/core/ingestion_engine"
	objectclient "github.com/edurag-project/backend/internal/core/object-client"
	"github.com/edurag-project/backend/internal/models"
)

// maxUploadBytes caps PDF uploads at 50MB.
const maxUploadBytes = 50 << 20

type MaterialHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	ingestor     ingestion_engine.Ingestor
	cfg          *config.Config
}

func NewMaterialHandler(dbclient core.DbClient, obj core.ObjectClient, ing ingestion_engine.Ingestor, cfg *config.Config) *MaterialHandler {
	return &MaterialHandler{dbclient: dbclient, objectclient: obj, ingestor: ing, cfg: cfg}
}

// UploadPDF accepts a multipart PDF upload, stores the file, creates a
// pending material record and hands it to the background ingestor. It
// returns immediately; extraction and embedding happen asynchronously.
func (h *MaterialHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := r.FormValue("title")
	courseID := r.FormValue("course_id")
	author := r.FormValue("author")
	if title == "" || courseID == "" {
		writeError(w, http.StatusBadRequest, "title and course_id are required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading upload failed")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "Empty file")
		return
	}
	if len(content) > maxUploadBytes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"File too large. Maximum size is 50MB, got %.2fMB", float64(len(content))/1024/1024))
		return
	}

	materialID := uuid.NewString()
	authorPtr := &author
	if author == "" {
		authorPtr = nil
	}
	material := &models.Material{
		ID:               materialID,
		Title:            title,
		CourseID:         courseID,
		MimeType:         "application/pdf",
		Author:           authorPtr,
		ProcessingStatus: models.StatusPending,
		ChunksCount:      0,
		CreatedAt:        time.Now(),
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := h.dbclient.CreateMaterial(uploadCtx, material); err != nil {
		log.Printf("material insert failed for %s: %v", materialID, err)
		writeError(w, http.StatusBadRequest, "Failed to create material record")
		return
	}

	key := objectclient.MaterialKey(materialID, filepath.Base(header.Filename))
	storagePath, err := h.objectclient.UploadFile(uploadCtx, h.cfg.BucketName, key, content, "application/pdf")
	if err != nil {
		log.Printf("storage upload failed for %s: %v", materialID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Upload failed: %v", err))
		return
	}

	if err := h.dbclient.SetMaterialFileURL(uploadCtx, materialID, storagePath); err != nil {
		log.Printf("file_url update failed for %s: %v", materialID, err)
		writeError(w, http.StatusInternalServerError, "failed to store file location")
		return
	}

	if !h.ingestor.Enqueue(materialID) {
		// The material stays pending; the reprocess endpoint re-triggers it.
		log.Printf("ingestion queue full, material %s left pending", materialID)
	}
	log.Printf("PDF uploaded: %s (material_id: %s)", title, materialID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "PDF uploaded successfully. Processing in background...",
		"material_id":  materialID,
		"title":        title,
		"file_size_mb": math.Round(float64(len(content))/1024/1024*100) / 100,
		"status":       "processing",
	})
}

type materialCreateRequest struct {
	Title    string  `json:"title"`
	CourseID string  `json:"course_id"`
	MimeType string  `json:"mime_type"`
	Author   *string `json:"author"`
	FileURL  *string `json:"file_url"`
	RawText  *string `json:"raw_text"`
}

// CreateMaterial is the legacy manual-entry path: the material's text is
// provided directly instead of extracted from a PDF.
func (h *MaterialHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Title == "" || req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "title and course_id are required")
		return
	}
	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}

	material := &models.Material{
		ID:               uuid.NewString(),
		Title:            req.Title,
		CourseID:         req.CourseID,
		MimeType:         req.MimeType,
		Author:           req.Author,
		FileURL:          req.FileURL,
		RawText:          req.RawText,
		ProcessingStatus: models.StatusPending,
		CreatedAt:        time.Now(),
	}

	if err := h.dbclient.CreateMaterial(r.Context(), material); err != nil {
		log.Printf("material create failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Material created: %s", req.Title)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Material created successfully",
		"data":    material,
	})
}

func (h *MaterialHandler) GetMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.dbclient.ListMaterials(r.Context(), r.URL.Query().Get("course_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if materials == nil {
		materials = []models.Material{}
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *MaterialHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "material_id")
	material, err := h.dbclient.GetMaterialByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if material == nil {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}
	writeJSON(w, http.StatusOK, material)
}

// DeleteMaterial removes the material, its chunks (FK cascade, plus an
// explicit delete) and its stored file.
func (h *MaterialHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "material_id")
	ctx := r.Context()

	material, err := h.dbclient.GetMaterialByID(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if material == nil {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}

	if _, err := h.dbclient.DeleteMaterialChunks(ctx, id); err != nil {
		log.Printf("chunk delete failed for %s: %v", id, err)
	}

	if material.FileURL != nil && *material.FileURL != "" {
		if err := h.objectclient.DeleteFile(ctx, h.cfg.BucketName, *material.FileURL); err != nil {
			log.Printf("storage delete failed for %s: %v", id, err)
		}
	}

	if err := h.dbclient.DeleteMaterial(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Material deleted: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Material deleted successfully"})
}

// DeleteChunks removes a material's chunks and resets it to pending so
// it can be reprocessed.
func (h *MaterialHandler) DeleteChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "material_id")

	material, err := h.dbclient.GetMaterialByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if material == nil {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}

	deleted, err := h.ingestor.DeleteChunks(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Chunks deleted successfully",
		"chunks_deleted": deleted,
		"status":         models.StatusPending,
	})
}

// Reprocess re-enqueues a material whose file is already in storage.
func (h *MaterialHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "material_id")

	material, err := h.dbclient.GetMaterialByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if material == nil {
		writeError(w, http.StatusNotFound, "Material not found")
		return
	}
	if material.FileURL == nil || *material.FileURL == "" {
		writeError(w, http.StatusBadRequest, "material has no stored file")
		return
	}

	if !h.ingestor.Enqueue(id) {
		writeError(w, http.StatusConflict, "material is already being processed or the queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Reprocessing scheduled",
		"material_id": id,
	})
}
