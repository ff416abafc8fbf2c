package handlers

import (
	"log"
	"math"
	"net/http"
	"sort"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/models"
)

type AnalyticsHandler struct {
	dbclient core.DbClient
}

func NewAnalyticsHandler(dbclient core.DbClient) *AnalyticsHandler {
	return &AnalyticsHandler{dbclient: dbclient}
}

// Stats returns headline counts per table. Failures degrade to zeros so
// dashboards never break on a transient DB error.
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.dbclient.TableCounts(r.Context())
	if err != nil {
		log.Printf("stats query failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]int{
			"courses": 0, "students": 0, "materials": 0, "queries": 0,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"courses":   counts["courses"],
		"students":  counts["students"],
		"materials": counts["materials"],
		// Enrollments stand in for query activity.
		"queries": counts["enrollments"],
	})
}

type courseStat struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	MaterialsCount   int    `json:"materials_count"`
	EnrollmentsCount int    `json:"enrollments_count"`
}

type activityItem struct {
	Type        string `json:"type"`
	StudentName string `json:"student_name"`
	CourseName  string `json:"course_name"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}

// Detailed builds the dashboard rollup: per-course material and
// enrollment counts, cohort and status breakdowns, recent activity.
func (h *AnalyticsHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	courses, err := h.dbclient.ListCourses(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	students, err := h.dbclient.ListStudents(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	materials, err := h.dbclient.ListMaterials(ctx, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	enrollments, err := h.dbclient.ListEnrollments(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	materialsByCourse := make(map[string]int)
	for _, m := range materials {
		materialsByCourse[m.CourseID]++
	}
	enrollmentsByCourse := make(map[string]int)
	for _, e := range enrollments {
		enrollmentsByCourse[e.CourseID]++
	}

	stats := make([]courseStat, 0, len(courses))
	for _, c := range courses {
		stats = append(stats, courseStat{
			ID:               c.ID,
			Code:             c.Code,
			Name:             c.Name,
			MaterialsCount:   materialsByCourse[c.ID],
			EnrollmentsCount: enrollmentsByCourse[c.ID],
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].EnrollmentsCount > stats[j].EnrollmentsCount
	})
	if len(stats) > 10 {
		stats = stats[:10]
	}

	byCohort := make(map[string]int)
	// Status keys stay in Spanish for the dashboard.
	byStatus := map[string]int{"activo": 0, "inactivo": 0, "completado": 0}
	statusLabel := map[string]string{
		models.EnrollmentActive:    "activo",
		models.EnrollmentInactive:  "inactivo",
		models.EnrollmentCompleted: "completado",
	}
	for _, e := range enrollments {
		cohort := e.StudentCohort
		if cohort == "" {
			cohort = "Sin cohorte"
		}
		byCohort[cohort]++

		label, ok := statusLabel[e.Status]
		if !ok {
			label = "activo"
		}
		byStatus[label]++
	}

	// Enrollments come back newest first.
	recent := make([]activityItem, 0, 10)
	for _, e := range enrollments {
		if len(recent) == 10 {
			break
		}
		recent = append(recent, activityItem{
			Type:        "enrollment",
			StudentName: e.StudentName,
			CourseName:  e.CourseCode + " - " + e.CourseName,
			Date:        e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Status:      e.Status,
		})
	}

	avgMaterials, avgEnrollments := 0.0, 0.0
	if len(courses) > 0 {
		avgMaterials = math.Round(float64(len(materials))/float64(len(courses))*10) / 10
		avgEnrollments = math.Round(float64(len(enrollments))/float64(len(courses))*10) / 10
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overview": map[string]any{
			"total_courses":              len(courses),
			"total_students":             len(students),
			"total_materials":            len(materials),
			"total_enrollments":          len(enrollments),
			"active_enrollments":         byStatus["activo"],
			"avg_materials_per_course":   avgMaterials,
			"avg_enrollments_per_course": avgEnrollments,
		},
		"course_stats":          stats,
		"enrollments_by_cohort": byCohort,
		"enrollments_by_status": byStatus,
		"recent_activity":       recent,
	})
}
