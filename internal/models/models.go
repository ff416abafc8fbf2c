package models

import (
	"time"
)

// Course groups uploaded materials and enrollments.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Syllabus  *string   `db:"syllabus" json:"syllabus,omitempty"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student is an enrolled end user of the chat surface.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Cohort    string    `db:"cohort" json:"cohort"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentInactive  = "inactive"
	EnrollmentCompleted = "completed"
)

// Enrollment links a student to a course.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined from students and courses on reads.
	StudentName   string `db:"student_name" json:"student_name,omitempty"`
	StudentEmail  string `db:"student_email" json:"student_email,omitempty"`
	StudentCohort string `db:"student_cohort" json:"student_cohort,omitempty"`
	CourseCode    string `db:"course_code" json:"course_code,omitempty"`
	CourseName    string `db:"course_name" json:"course_name,omitempty"`
}

// Material processing statuses. A material starts pending, moves to
// processing when a worker picks it up, and ends completed or failed.
// Deleting its chunks resets it to pending.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Material represents one uploaded course document (a PDF, usually).
type Material struct {
	ID               string     `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	CourseID         string     `db:"course_id" json:"course_id"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	Author           *string    `db:"author" json:"author,omitempty"`
	FileURL          *string    `db:"file_url" json:"file_url,omitempty"`
	RawText          *string    `db:"raw_text" json:"raw_text,omitempty"` // legacy manual-entry path
	ProcessingStatus string     `db:"processing_status" json:"processing_status"`
	ChunksCount      int        `db:"chunks_count" json:"chunks_count"`
	ProcessedAt      *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`

	// Joined from courses on reads.
	CourseCode string `db:"course_code" json:"course_code,omitempty"`
	CourseName string `db:"course_name" json:"course_name,omitempty"`
}

// ChunkMetadata is stored alongside each chunk as jsonb: page attribution
// plus the document-level extraction metadata the chunk inherits.
type ChunkMetadata struct {
	Page             int     `json:"page"`
	CharLength       int     `json:"char_length"`
	ExtractionMethod string  `json:"extraction_method"`
	TotalPages       int     `json:"total_pages"`
	TotalChars       int     `json:"total_chars"`
	OCRLanguage      string  `json:"ocr_language,omitempty"`
	AvgConfidence    float64 `json:"avg_confidence,omitempty"`
}

// MaterialChunk is one embedded slice of a material's extracted text.
// ChunkIndex values are contiguous 0..N-1 in source order per material.
type MaterialChunk struct {
	ID         string        `db:"id" json:"id"`
	MaterialID string        `db:"material_id" json:"material_id"`
	ChunkIndex int           `db:"chunk_index" json:"chunk_index"`
	ChunkText  string        `db:"chunk_text" json:"chunk_text"`
	TokenCount int           `db:"token_count" json:"token_count"`
	Embedding  []float32     `db:"embedding" json:"embedding"` // pgvector column
	Metadata   ChunkMetadata `db:"metadata" json:"metadata"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// RetrievedChunk is a similarity-search hit with its source attribution.
// Ephemeral: built per query, never persisted.
type RetrievedChunk struct {
	ChunkID       string        `json:"chunk_id"`
	MaterialID    string        `json:"material_id"`
	ChunkText     string        `json:"chunk_text"`
	Metadata      ChunkMetadata `json:"metadata"`
	Similarity    float64       `json:"similarity"`
	MaterialTitle string        `json:"material_title"`
	CourseCode    string        `json:"course_code"`
	CourseName    string        `json:"course_name"`
	Author        string        `json:"author"`
}
