package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edurag-project/backend/internal/config"
	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Courses

func (c *DatabaseClient) CreateCourse(ctx context.Context, course *models.Course) error {
	if course == nil {
		return errors.New("nil course")
	}
	const q = `
		INSERT INTO courses (id, code, name, syllabus, credits, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		course.ID, course.Code, course.Name, course.Syllabus, course.Credits, course.CreatedAt)
	return err
}

func (c *DatabaseClient) GetCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const q = `
		SELECT id, code, name, syllabus, credits, created_at
		FROM courses WHERE id = $1
	`
	var co models.Course
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&co.ID, &co.Code, &co.Name, &co.Syllabus, &co.Credits, &co.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *DatabaseClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	const q = `
		SELECT id, code, name, syllabus, credits, created_at
		FROM courses
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var co models.Course
		if err := rows.Scan(&co.ID, &co.Code, &co.Name, &co.Syllabus, &co.Credits, &co.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateCourse(ctx context.Context, course *models.Course) error {
	if course == nil {
		return errors.New("nil course")
	}
	const q = `
		UPDATE courses
		SET code = $2, name = $3, syllabus = $4, credits = $5
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, course.ID, course.Code, course.Name, course.Syllabus, course.Credits)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("course not found: %s", course.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteCourse(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("course not found: %s", id)
	}
	return nil
}

// Students

func (c *DatabaseClient) CreateStudent(ctx context.Context, student *models.Student) error {
	if student == nil {
		return errors.New("nil student")
	}
	const q = `
		INSERT INTO students (id, name, email, cohort, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		student.ID, student.Name, student.Email, student.Cohort, student.CreatedAt)
	return err
}

func (c *DatabaseClient) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	const q = `
		SELECT id, name, email, cohort, created_at
		FROM students
		WHERE id = $1
	`
	var s models.Student
	err := c.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.Email, &s.Cohort, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) ListStudents(ctx context.Context) ([]models.Student, error) {
	const q = `
		SELECT id, name, email, cohort, created_at
		FROM students
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Cohort, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateStudent(ctx context.Context, student *models.Student) error {
	if student == nil {
		return errors.New("nil student")
	}
	const q = `
		UPDATE students
		SET name = $2, email = $3, cohort = $4
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, student.ID, student.Name, student.Email, student.Cohort)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("student not found: %s", student.ID)
	}
	return nil
}

// DeleteStudent removes the student and reports how many enrollments the
// FK cascade took with it.
func (c *DatabaseClient) DeleteStudent(ctx context.Context, id string) (int, error) {
	var enrollments int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM enrollments WHERE student_id = $1`, id).Scan(&enrollments)
	if err != nil {
		return 0, err
	}
	_, err = c.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return enrollments, nil
}

// Enrollments

func (c *DatabaseClient) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return errors.New("nil enrollment")
	}
	const q = `
		INSERT INTO enrollments (id, student_id, course_id, status, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		enrollment.ID, enrollment.StudentID, enrollment.CourseID, enrollment.Status, enrollment.CreatedAt)
	return err
}

func (c *DatabaseClient) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	const q = `
		SELECT e.id, e.student_id, e.course_id, e.status, e.created_at,
		       s.name, s.email, s.cohort, c.code, c.name
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN courses c  ON c.id = e.course_id
		ORDER BY e.created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(
			&e.ID, &e.StudentID, &e.CourseID, &e.Status, &e.CreatedAt,
			&e.StudentName, &e.StudentEmail, &e.StudentCohort, &e.CourseCode, &e.CourseName,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteEnrollment(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	return err
}

// Materials

func (c *DatabaseClient) CreateMaterial(ctx context.Context, m *models.Material) error {
	if m == nil {
		return errors.New("nil material")
	}
	const q = `
		INSERT INTO materials
			(id, title, course_id, mime_type, author, file_url, raw_text, processing_status, chunks_count, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		m.ID, m.Title, m.CourseID, m.MimeType, m.Author, m.FileURL, m.RawText,
		m.ProcessingStatus, m.ChunksCount, m.CreatedAt)
	return err
}

func (c *DatabaseClient) GetMaterialByID(ctx context.Context, id string) (*models.Material, error) {
	const q = `
		SELECT m.id, m.title, m.course_id, m.mime_type, m.author, m.file_url, m.raw_text,
		       m.processing_status, m.chunks_count, m.processed_at, m.created_at,
		       c.code, c.name
		FROM materials m
		JOIN courses c ON c.id = m.course_id
		WHERE m.id = $1
	`
	var m models.Material
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.Title, &m.CourseID, &m.MimeType, &m.Author, &m.FileURL, &m.RawText,
		&m.ProcessingStatus, &m.ChunksCount, &m.ProcessedAt, &m.CreatedAt,
		&m.CourseCode, &m.CourseName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMaterials returns all materials, or only those of a course when
// courseID is non-empty.
func (c *DatabaseClient) ListMaterials(ctx context.Context, courseID string) ([]models.Material, error) {
	const q = `
		SELECT m.id, m.title, m.course_id, m.mime_type, m.author, m.file_url, m.raw_text,
		       m.processing_status, m.chunks_count, m.processed_at, m.created_at,
		       c.code, c.name
		FROM materials m
		JOIN courses c ON c.id = m.course_id
		WHERE ($1 = '' OR m.course_id = $1::uuid)
		ORDER BY m.created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Material
	for rows.Next() {
		var m models.Material
		if err := rows.Scan(
			&m.ID, &m.Title, &m.CourseID, &m.MimeType, &m.Author, &m.FileURL, &m.RawText,
			&m.ProcessingStatus, &m.ChunksCount, &m.ProcessedAt, &m.CreatedAt,
			&m.CourseCode, &m.CourseName,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateMaterialStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE materials
		SET processing_status = $2
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("material not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) MarkMaterialCompleted(ctx context.Context, id string, chunksCount int) error {
	const q = `
		UPDATE materials
		SET processing_status = $2, chunks_count = $3, processed_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusCompleted, chunksCount)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("material not found: %s", id)
	}
	return nil
}

// ResetMaterial restores the pre-ingestion baseline after chunk deletion.
func (c *DatabaseClient) ResetMaterial(ctx context.Context, id string) error {
	const q = `
		UPDATE materials
		SET processing_status = $2, chunks_count = 0, processed_at = NULL
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, models.StatusPending)
	return err
}

func (c *DatabaseClient) SetMaterialFileURL(ctx context.Context, id string, fileURL string) error {
	const q = `
		UPDATE materials
		SET file_url = $2
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, fileURL)
	return err
}

func (c *DatabaseClient) DeleteMaterial(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("material not found: %s", id)
	}
	return nil
}

// Material chunks

// InsertMaterialChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertMaterialChunks(ctx context.Context, chunks []models.MaterialChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO material_chunks
			(id, material_id, chunk_index, chunk_text, token_count, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.MaterialID, ch.ChunkIndex, ch.ChunkText, ch.TokenCount, vec, meta, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteMaterialChunks removes all chunk rows for a material and returns
// how many were deleted. Status reset is a separate call; the orchestrator
// owns that ordering.
func (c *DatabaseClient) DeleteMaterialChunks(ctx context.Context, materialID string) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM material_chunks WHERE material_id = $1`, materialID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (c *DatabaseClient) CountMaterialChunks(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM material_chunks`).Scan(&n)
	return n, err
}

func (c *DatabaseClient) CountMaterials(ctx context.Context) (int, int, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE processing_status = 'completed')
		FROM materials
	`
	var total, completed int
	err := c.db.QueryRowContext(ctx, q).Scan(&total, &completed)
	return total, completed, err
}

func (c *DatabaseClient) TableCounts(ctx context.Context) (map[string]int, error) {
	const q = `
		SELECT
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM materials),
			(SELECT COUNT(*) FROM enrollments)
	`
	var courses, students, materials, enrollments int
	if err := c.db.QueryRowContext(ctx, q).Scan(&courses, &students, &materials, &enrollments); err != nil {
		return nil, err
	}
	return map[string]int{
		"courses":     courses,
		"students":    students,
		"materials":   materials,
		"enrollments": enrollments,
	}, nil
}

// MatchMaterialChunks runs the server-side similarity search function.
func (c *DatabaseClient) MatchMaterialChunks(ctx context.Context, queryVec []float32, threshold float64, count int, courseID, materialID string) ([]models.RetrievedChunk, error) {
	const q = `
		SELECT chunk_id, material_id, chunk_text, metadata, similarity,
		       material_title, course_code, course_name, author
		FROM match_material_chunks($1, $2, $3, $4, $5)
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, vec, threshold, count, nullIfEmpty(courseID), nullIfEmpty(materialID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RetrievedChunk
	for rows.Next() {
		var (
			rc   models.RetrievedChunk
			meta []byte
		)
		if err := rows.Scan(
			&rc.ChunkID, &rc.MaterialID, &rc.ChunkText, &meta, &rc.Similarity,
			&rc.MaterialTitle, &rc.CourseCode, &rc.CourseName, &rc.Author,
		); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
