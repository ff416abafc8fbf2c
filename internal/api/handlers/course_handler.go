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

type CourseHandler struct {
	dbclient core.DbClient
}

func NewCourseHandler(dbclient core.DbClient) *CourseHandler {
	return &CourseHandler{dbclient: dbclient}
}

type courseCreateRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Syllabus *string `json:"syllabus"`
	Credits  *int    `json:"credits"`
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Code == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	credits := 3
	if req.Credits != nil {
		credits = *req.Credits
	}

	course := &models.Course{
		ID:        uuid.NewString(),
		Code:      req.Code,
		Name:      req.Name,
		Syllabus:  req.Syllabus,
		Credits:   credits,
		CreatedAt: time.Now(),
	}

	if err := h.dbclient.CreateCourse(r.Context(), course); err != nil {
		log.Printf("course create failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Course created: %s", course.Code)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Course created successfully",
		"data":    course,
	})
}

func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.dbclient.ListCourses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if courses == nil {
		courses = []models.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "course_id")
	course, err := h.dbclient.GetCourseByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if course == nil {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) GetCourseMaterials(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "course_id")
	materials, err := h.dbclient.ListMaterials(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if materials == nil {
		materials = []models.Material{}
	}
	writeJSON(w, http.StatusOK, materials)
}

type courseUpdateRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Syllabus *string `json:"syllabus"`
	Credits  *int    `json:"credits"`
}

func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "course_id")

	var req courseUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	course, err := h.dbclient.GetCourseByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if course == nil {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}

	if req.Code != nil {
		course.Code = *req.Code
	}
	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Syllabus != nil {
		course.Syllabus = req.Syllabus
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}

	if err := h.dbclient.UpdateCourse(r.Context(), course); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Course updated: %s", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Course updated successfully",
		"data":    course,
	})
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "course_id")

	course, err := h.dbclient.GetCourseByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if course == nil {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}

	if err := h.dbclient.DeleteCourse(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Course deleted: %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Course deleted successfully"})
}
