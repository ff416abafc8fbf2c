package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/models"
)

type EnrollmentHandler struct {
	dbclient core.DbClient
}

func NewEnrollmentHandler(dbclient core.DbClient) *EnrollmentHandler {
	return &EnrollmentHandler{dbclient: dbclient}
}

type enrollmentCreateRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Status    string `json:"status"`
}

func (h *EnrollmentHandler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req enrollmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.StudentID == "" || req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "student_id and course_id are required")
		return
	}
	if req.Status == "" {
		req.Status = models.EnrollmentActive
	}

	enrollment := &models.Enrollment{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    req.Status,
		CreatedAt: time.Now(),
	}

	if err := h.dbclient.CreateEnrollment(r.Context(), enrollment); err != nil {
		log.Printf("enrollment create failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Enrollment created: student %s in course %s", req.StudentID, req.CourseID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Enrollment created successfully",
		"data":    enrollment,
	})
}

func (h *EnrollmentHandler) GetEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.dbclient.ListEnrollments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	writeJSON(w, http.StatusOK, enrollments)
}

func (h *EnrollmentHandler) DeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "enrollment_id")

	if err := h.dbclient.DeleteEnrollment(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Enrollment deleted: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Enrollment deleted successfully"})
}
