package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag-project/backend/internal/core/pdf"
	"github.com/edurag-project/backend/internal/models"
)

type fakeDB struct {
	materials map[string]*models.Material
	chunks    map[string][]models.MaterialChunk
	statusLog []string
	insertErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		materials: make(map[string]*models.Material),
		chunks:    make(map[string][]models.MaterialChunk),
	}
}

func (f *fakeDB) CreateCourse(context.Context, *models.Course) error      { return nil }
func (f *fakeDB) GetCourseByID(context.Context, string) (*models.Course, error) {
	return nil, nil
}
func (f *fakeDB) ListCourses(context.Context) ([]models.Course, error) { return nil, nil }
func (f *fakeDB) UpdateCourse(context.Context, *models.Course) error   { return nil }
func (f *fakeDB) DeleteCourse(context.Context, string) error           { return nil }

func (f *fakeDB) CreateStudent(context.Context, *models.Student) error { return nil }
func (f *fakeDB) GetStudentByID(context.Context, string) (*models.Student, error) {
	return nil, nil
}
func (f *fakeDB) ListStudents(context.Context) ([]models.Student, error) { return nil, nil }
func (f *fakeDB) UpdateStudent(context.Context, *models.Student) error   { return nil }
func (f *fakeDB) DeleteStudent(context.Context, string) (int, error)     { return 0, nil }

func (f *fakeDB) CreateEnrollment(context.Context, *models.Enrollment) error { return nil }
func (f *fakeDB) ListEnrollments(context.Context) ([]models.Enrollment, error) {
	return nil, nil
}
func (f *fakeDB) DeleteEnrollment(context.Context, string) error { return nil }

func (f *fakeDB) CreateMaterial(_ context.Context, m *models.Material) error {
	f.materials[m.ID] = m
	return nil
}

func (f *fakeDB) GetMaterialByID(_ context.Context, id string) (*models.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeDB) ListMaterials(context.Context, string) ([]models.Material, error) {
	return nil, nil
}

func (f *fakeDB) UpdateMaterialStatus(_ context.Context, id, status string) error {
	m, ok := f.materials[id]
	if !ok {
		return errors.New("material not found")
	}
	m.ProcessingStatus = status
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeDB) MarkMaterialCompleted(_ context.Context, id string, chunksCount int) error {
	m, ok := f.materials[id]
	if !ok {
		return errors.New("material not found")
	}
	now := time.Now()
	m.ProcessingStatus = models.StatusCompleted
	m.ChunksCount = chunksCount
	m.ProcessedAt = &now
	f.statusLog = append(f.statusLog, models.StatusCompleted)
	return nil
}

func (f *fakeDB) ResetMaterial(_ context.Context, id string) error {
	m, ok := f.materials[id]
	if !ok {
		return errors.New("material not found")
	}
	m.ProcessingStatus = models.StatusPending
	m.ChunksCount = 0
	m.ProcessedAt = nil
	f.statusLog = append(f.statusLog, models.StatusPending)
	return nil
}

func (f *fakeDB) SetMaterialFileURL(_ context.Context, id, fileURL string) error {
	if m, ok := f.materials[id]; ok {
		m.FileURL = &fileURL
	}
	return nil
}

func (f *fakeDB) DeleteMaterial(_ context.Context, id string) error {
	delete(f.materials, id)
	return nil
}

func (f *fakeDB) InsertMaterialChunks(_ context.Context, chunks []models.MaterialChunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, ch := range chunks {
		f.chunks[ch.MaterialID] = append(f.chunks[ch.MaterialID], ch)
	}
	return nil
}

func (f *fakeDB) DeleteMaterialChunks(_ context.Context, materialID string) (int, error) {
	n := len(f.chunks[materialID])
	delete(f.chunks, materialID)
	return n, nil
}

func (f *fakeDB) CountMaterialChunks(context.Context) (int, error) { return 0, nil }
func (f *fakeDB) CountMaterials(context.Context) (int, int, error) { return 0, 0, nil }
func (f *fakeDB) TableCounts(context.Context) (map[string]int, error) {
	return nil, nil
}

func (f *fakeDB) MatchMaterialChunks(context.Context, []float32, float64, int, string, string) ([]models.RetrievedChunk, error) {
	return nil, nil
}

func (f *fakeDB) Close() error { return nil }

type fakeObjectStore struct {
	files map[string][]byte
}

func (f *fakeObjectStore) UploadFile(_ context.Context, _, key string, data []byte, _ string) (string, error) {
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[key] = data
	return key, nil
}

func (f *fakeObjectStore) DeleteFile(_ context.Context, _, key string) error {
	delete(f.files, key)
	return nil
}

func (f *fakeObjectStore) GetFile(_ context.Context, _, key string) ([]byte, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return data, nil
}

func (f *fakeObjectStore) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, err := f.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractSmart(context.Context, []byte) (string, *pdf.Meta, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	meta := &pdf.Meta{
		TotalPages: 1,
		Method:     pdf.MethodLayout,
		PageBreaks: []pdf.PageBreak{{Page: 1, CharPosition: 0}},
		TotalChars: len(f.text),
	}
	return f.text, meta, nil
}

func newTestIngestor(db *fakeDB, obj *fakeObjectStore, ext TextExtractor, emb *fakeProvider) *MaterialIngestor {
	chunker := NewChunker(50, 10, approxTokens)
	cfg := &IngestConfig{ChunkSize: 50, ChunkOverlap: 10, Bucket: "test-bucket"}
	return NewMaterialIngestor(db, obj, emb, ext, chunker, cfg)
}

func seedMaterial(db *fakeDB, obj *fakeObjectStore, id string) {
	fileURL := "materials/" + id + ".pdf"
	db.materials[id] = &models.Material{
		ID:               id,
		Title:            "Biología celular",
		CourseID:         "course-1",
		MimeType:         "application/pdf",
		FileURL:          &fileURL,
		ProcessingStatus: models.StatusPending,
	}
	if obj.files == nil {
		obj.files = make(map[string][]byte)
	}
	obj.files[fileURL] = []byte("%PDF-fake")
}

func TestProcessOneCompletes(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	seedMaterial(db, obj, "mat-1")

	text := strings.Repeat("La célula es la unidad básica de la vida. ", 30)
	ing := newTestIngestor(db, obj, &fakeExtractor{text: text}, &fakeProvider{})

	err := ing.ProcessOne(context.Background(), "mat-1")
	require.NoError(t, err)

	m := db.materials["mat-1"]
	assert.Equal(t, models.StatusCompleted, m.ProcessingStatus)
	assert.Equal(t, len(db.chunks["mat-1"]), m.ChunksCount)
	assert.NotNil(t, m.ProcessedAt)
	assert.Greater(t, m.ChunksCount, 0)

	// processing before completed
	assert.Equal(t, []string{models.StatusProcessing, models.StatusCompleted}, db.statusLog)

	for i, ch := range db.chunks["mat-1"] {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, "mat-1", ch.MaterialID)
		assert.NotEmpty(t, ch.ID)
		assert.NotEmpty(t, ch.Embedding)
		assert.Equal(t, pdf.MethodLayout, ch.Metadata.ExtractionMethod)
	}
}

func TestProcessOneInsufficientText(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	seedMaterial(db, obj, "mat-2")

	ing := newTestIngestor(db, obj, &fakeExtractor{text: "too short"}, &fakeProvider{})

	err := ing.ProcessOne(context.Background(), "mat-2")
	require.ErrorIs(t, err, ErrInsufficientText)
	assert.Equal(t, models.StatusFailed, db.materials["mat-2"].ProcessingStatus)
	assert.Empty(t, db.chunks["mat-2"])
}

func TestProcessOneExtractionFailure(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	seedMaterial(db, obj, "mat-3")

	ing := newTestIngestor(db, obj, &fakeExtractor{err: errors.New("corrupt xref table")}, &fakeProvider{})

	err := ing.ProcessOne(context.Background(), "mat-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt xref table")
	assert.Equal(t, models.StatusFailed, db.materials["mat-3"].ProcessingStatus)
}

func TestProcessOneEmbeddingFailure(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	seedMaterial(db, obj, "mat-4")

	text := strings.Repeat("Contenido del material de prueba para el curso. ", 20)
	ing := newTestIngestor(db, obj, &fakeExtractor{text: text}, &fakeProvider{failAt: 1})

	err := ing.ProcessOne(context.Background(), "mat-4")
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, db.materials["mat-4"].ProcessingStatus)
	assert.Empty(t, db.chunks["mat-4"])
}

func TestProcessOneMissingFile(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	db.materials["mat-5"] = &models.Material{
		ID:               "mat-5",
		Title:            "Sin archivo",
		ProcessingStatus: models.StatusPending,
	}

	ing := newTestIngestor(db, obj, &fakeExtractor{text: "irrelevant"}, &fakeProvider{})

	err := ing.ProcessOne(context.Background(), "mat-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored file")
	assert.Equal(t, models.StatusFailed, db.materials["mat-5"].ProcessingStatus)
}

func TestProcessOneUnknownMaterial(t *testing.T) {
	db := newFakeDB()
	ing := newTestIngestor(db, &fakeObjectStore{}, &fakeExtractor{}, &fakeProvider{})

	err := ing.ProcessOne(context.Background(), "ghost")
	require.Error(t, err)
	assert.Empty(t, db.statusLog)
}

func TestDeleteChunksResetsMaterial(t *testing.T) {
	db := newFakeDB()
	obj := &fakeObjectStore{}
	seedMaterial(db, obj, "mat-6")

	text := strings.Repeat("Texto del material que será reprocesado más tarde. ", 20)
	ing := newTestIngestor(db, obj, &fakeExtractor{text: text}, &fakeProvider{})

	require.NoError(t, ing.ProcessOne(context.Background(), "mat-6"))
	stored := len(db.chunks["mat-6"])
	require.Greater(t, stored, 0)

	deleted, err := ing.DeleteChunks(context.Background(), "mat-6")
	require.NoError(t, err)
	assert.Equal(t, stored, deleted)

	m := db.materials["mat-6"]
	assert.Equal(t, models.StatusPending, m.ProcessingStatus)
	assert.Equal(t, 0, m.ChunksCount)
	assert.Nil(t, m.ProcessedAt)
	assert.Empty(t, db.chunks["mat-6"])
}

func TestEnqueueDropsDuplicates(t *testing.T) {
	ing := newTestIngestor(newFakeDB(), &fakeObjectStore{}, &fakeExtractor{}, &fakeProvider{})

	assert.True(t, ing.Enqueue("mat-7"))
	assert.False(t, ing.Enqueue("mat-7"))

	ing.release("mat-7")
	// After the in-flight run releases the material it can be queued again.
	assert.True(t, ing.Enqueue("mat-7"))
}

func TestEnqueueDoesNotBlockWhenQueueFull(t *testing.T) {
	ing := newTestIngestor(newFakeDB(), &fakeObjectStore{}, &fakeExtractor{}, &fakeProvider{})

	// No workers are draining, so the buffered queue fills completely.
	for n := 0; n < cap(ing.jobs); n++ {
		require.True(t, ing.Enqueue(fmt.Sprintf("mat-%d", n)))
	}

	done := make(chan bool, 1)
	go func() { done <- ing.Enqueue("overflow") }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	// The rejected material was released, not left stuck in the in-flight
	// set, so it can be scheduled once the queue has room again.
	<-ing.jobs
	assert.True(t, ing.Enqueue("overflow"))
}
