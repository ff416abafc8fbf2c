package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/edurag-project/backend/internal/api/handlers"
	"github.com/edurag-project/backend/internal/config"
	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/core/ingestion_engine"
	"github.com/edurag-project/backend/internal/core/rag"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ing ingestion_engine.Ingestor, retriever *rag.Retriever, answerer *rag.Answerer) *Server {
	authHandler := handlers.NewAuthHandler()
	courseHandler := handlers.NewCourseHandler(db)
	studentHandler := handlers.NewStudentHandler(db)
	enrollmentHandler := handlers.NewEnrollmentHandler(db)
	materialHandler := handlers.NewMaterialHandler(db, obj, ing, cfg)
	ragHandler := handlers.NewRagHandler(db, retriever, answerer, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Welcome to EduRAG","health":"/health"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","app":"EduRAG"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", authHandler.Login)
		api.Post("/auth/register", authHandler.Register)

		api.Route("/courses", func(cr chi.Router) {
			cr.Post("/", courseHandler.CreateCourse)
			cr.Get("/", courseHandler.GetCourses)
			cr.Get("/{course_id}", courseHandler.GetCourse)
			cr.Get("/{course_id}/materials", courseHandler.GetCourseMaterials)
			cr.Put("/{course_id}", courseHandler.UpdateCourse)
			cr.Delete("/{course_id}", courseHandler.DeleteCourse)
		})

		api.Route("/students", func(sr chi.Router) {
			sr.Post("/", studentHandler.CreateStudent)
			sr.Get("/", studentHandler.GetStudents)
			sr.Get("/{student_id}", studentHandler.GetStudent)
			sr.Put("/{student_id}", studentHandler.UpdateStudent)
			sr.Delete("/{student_id}", studentHandler.DeleteStudent)
		})

		api.Route("/enrollments", func(er chi.Router) {
			er.Post("/", enrollmentHandler.CreateEnrollment)
			er.Get("/", enrollmentHandler.GetEnrollments)
			er.Delete("/{enrollment_id}", enrollmentHandler.DeleteEnrollment)
		})

		api.Route("/materials", func(mr chi.Router) {
			mr.Post("/upload-pdf", materialHandler.UploadPDF)
			mr.Post("/", materialHandler.CreateMaterial)
			mr.Get("/", materialHandler.GetMaterials)
			mr.Get("/{material_id}", materialHandler.GetMaterial)
			mr.Delete("/{material_id}", materialHandler.DeleteMaterial)
			mr.Delete("/{material_id}/chunks", materialHandler.DeleteChunks)
			mr.Post("/{material_id}/reprocess", materialHandler.Reprocess)
		})

		api.Route("/rag", func(rr chi.Router) {
			rr.Post("/query", ragHandler.Query)
			rr.Post("/chat", ragHandler.Chat)
			rr.Get("/health", ragHandler.Health)
		})

		api.Get("/analytics/stats", analyticsHandler.Stats)
		api.Get("/analytics/detailed", analyticsHandler.Detailed)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
