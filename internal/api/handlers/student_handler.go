package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/models"
)

type StudentHandler struct {
	dbclient core.DbClient
}

func NewStudentHandler(dbclient core.DbClient) *StudentHandler {
	return &StudentHandler{dbclient: dbclient}
}

type studentCreateRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Cohort string `json:"cohort"`
}

func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name == "" || req.Cohort == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "name, valid email and cohort are required")
		return
	}

	student := &models.Student{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Cohort:    req.Cohort,
		CreatedAt: time.Now(),
	}

	if err := h.dbclient.CreateStudent(r.Context(), student); err != nil {
		log.Printf("student create failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Student created: %s", student.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Student created successfully",
		"data":    student,
	})
}

func (h *StudentHandler) GetStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.dbclient.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if students == nil {
		students = []models.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "student_id")
	student, err := h.dbclient.GetStudentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	writeJSON(w, http.StatusOK, student)
}

type studentUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Cohort *string `json:"cohort"`
}

func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "student_id")

	var req studentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	student, err := h.dbclient.GetStudentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.Cohort != nil {
		student.Cohort = *req.Cohort
	}

	if err := h.dbclient.UpdateStudent(r.Context(), student); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Student updated: %s", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Student updated successfully",
		"data":    student,
	})
}

// DeleteStudent removes the student; enrollments go with it (cascade)
// and the count is reported back.
func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "student_id")

	student, err := h.dbclient.GetStudentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	enrollmentsDeleted, err := h.dbclient.DeleteStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Student deleted: %s (%d enrollments)", id, enrollmentsDeleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             "Student deleted successfully",
		"enrollments_deleted": enrollmentsDeleted,
	})
}
