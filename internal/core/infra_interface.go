package core

import (
	"context"
	"io"

	"github.com/edurag-project/backend/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByID(ctx context.Context, id string) (*models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, id string) error

	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudentByID(ctx context.Context, id string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	UpdateStudent(ctx context.Context, student *models.Student) error
	DeleteStudent(ctx context.Context, id string) (enrollmentsDeleted int, err error)

	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error

	CreateMaterial(ctx context.Context, m *models.Material) error
	GetMaterialByID(ctx context.Context, id string) (*models.Material, error)
	ListMaterials(ctx context.Context, courseID string) ([]models.Material, error)
	UpdateMaterialStatus(ctx context.Context, id string, status string) error
	MarkMaterialCompleted(ctx context.Context, id string, chunksCount int) error
	ResetMaterial(ctx context.Context, id string) error
	SetMaterialFileURL(ctx context.Context, id string, fileURL string) error
	DeleteMaterial(ctx context.Context, id string) error

	InsertMaterialChunks(ctx context.Context, chunks []models.MaterialChunk) error
	DeleteMaterialChunks(ctx context.Context, materialID string) (int, error)
	CountMaterialChunks(ctx context.Context) (int, error)
	CountMaterials(ctx context.Context) (totalCount, completedCount int, err error)
	TableCounts(ctx context.Context) (map[string]int, error)

	// MatchMaterialChunks runs threshold/top-k cosine similarity search via the
	// match_material_chunks server-side function. Empty filter strings mean no filter.
	MatchMaterialChunks(ctx context.Context, queryVec []float32, threshold float64, count int, courseID, materialID string) ([]models.RetrievedChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
