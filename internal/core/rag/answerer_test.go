package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag-project/backend/internal/models"
)

type stubLLM struct {
	answer       string
	err          error
	systemPrompt string
	userPrompt   string
}

func (s *stubLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.systemPrompt, s.userPrompt = systemPrompt, userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func TestAnswerNoChunks(t *testing.T) {
	llm := &stubLLM{answer: "should not be called"}
	a := NewAnswerer(llm)

	answer := a.Answer(context.Background(), "¿qué es la fotosíntesis?", nil)
	assert.Contains(t, answer, "No encontré información relevante")
	assert.Empty(t, llm.userPrompt, "the model must not be called without context")
}

func TestAnswerBuildsContextAndFooter(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{
			MaterialID:    "m1",
			MaterialTitle: "Biología celular",
			CourseCode:    "BIO101",
			CourseName:    "Biología",
			ChunkText:     "La mitocondria produce ATP.",
			Metadata:      models.ChunkMetadata{Page: 12},
		},
		{
			MaterialID:    "m2",
			MaterialTitle: "Bioquímica",
			CourseCode:    "BIO201",
			CourseName:    "Bioquímica Avanzada",
			ChunkText:     "El ATP es la moneda energética.",
			Metadata:      models.ChunkMetadata{Page: 4},
		},
	}

	llm := &stubLLM{answer: "La mitocondria es el orgánulo que produce ATP."}
	a := NewAnswerer(llm)

	answer := a.Answer(context.Background(), "¿qué hace la mitocondria?", chunks)

	// Numbered fragments with attribution reach the model.
	assert.Contains(t, llm.systemPrompt, "[Fragmento 1]")
	assert.Contains(t, llm.systemPrompt, "[Fragmento 2]")
	assert.Contains(t, llm.systemPrompt, "Fuente: Biología celular")
	assert.Contains(t, llm.systemPrompt, "Curso: BIO101 - Biología")
	assert.Contains(t, llm.systemPrompt, "Página: 12")
	assert.Contains(t, llm.systemPrompt, "La mitocondria produce ATP.")
	assert.Equal(t, "¿qué hace la mitocondria?", llm.userPrompt)

	assert.Contains(t, answer, llm.answer)
	assert.Contains(t, answer, "Fuentes consultadas")
	assert.Contains(t, answer, "- Biología celular (BIO101 - Biología)")
	assert.Contains(t, answer, "- Bioquímica (BIO201 - Bioquímica Avanzada)")
}

func TestAnswerKeywordFallbackOnModelFailure(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{
			MaterialID:    "m1",
			MaterialTitle: "Biología celular",
			CourseCode:    "BIO101",
			CourseName:    "Biología",
			ChunkText:     "La mitocondria produce la energía de la célula. El núcleo guarda el ADN.",
		},
		{
			MaterialID:    "m1",
			MaterialTitle: "Biología celular",
			CourseCode:    "BIO101",
			CourseName:    "Biología",
			ChunkText:     "La mitocondria tiene su propio genoma. Los ribosomas sintetizan proteínas.",
		},
	}

	a := NewAnswerer(&stubLLM{err: errors.New("model overloaded")})
	answer := a.Answer(context.Background(), "dime sobre la mitocondria", chunks)

	// The model outage degrades to keyword search over the chunk texts
	// instead of surfacing an error to the caller.
	assert.Contains(t, answer, "Información encontrada")
	assert.Contains(t, answer, "La mitocondria produce la energía de la célula")
	assert.Contains(t, answer, "mitocondria")
	assert.Contains(t, answer, "búsqueda básica")
	assert.Contains(t, answer, "Fuentes consultadas")
	assert.Contains(t, answer, "- Biología celular (BIO101 - Biología)")
}

func strPtr(s string) *string { return &s }

func TestAnswerLegacyNoMaterials(t *testing.T) {
	a := NewAnswerer(&stubLLM{})
	res := a.AnswerLegacy(context.Background(), "pregunta", nil)
	assert.Contains(t, res.Answer, "No encontré materiales")
	assert.Empty(t, res.Sources)
	assert.Equal(t, "Sin materiales disponibles", res.Context)
}

func TestAnswerLegacyNoText(t *testing.T) {
	a := NewAnswerer(&stubLLM{})
	materials := []models.Material{
		{ID: "m1", Title: "Sin contenido", CourseCode: "BIO101", CourseName: "Biología"},
	}
	res := a.AnswerLegacy(context.Background(), "pregunta", materials)
	assert.Contains(t, res.Answer, "ninguno tiene contenido de texto")
	assert.Contains(t, res.Answer, "• Sin contenido")
	require.Len(t, res.Sources, 1)
}

func TestAnswerLegacyTruncatesLongContext(t *testing.T) {
	llm := &stubLLM{answer: "respuesta"}
	a := NewAnswerer(llm)

	long := strings.Repeat("Texto del material de estudio. ", 400) // ~12000 chars
	materials := []models.Material{
		{ID: "m1", Title: "Largo", RawText: &long, CourseCode: "BIO101", CourseName: "Biología"},
	}

	res := a.AnswerLegacy(context.Background(), "pregunta", materials)
	assert.Equal(t, "respuesta", res.Answer)
	assert.Contains(t, llm.systemPrompt, "[...contenido truncado por límite de tokens...]")
	assert.Contains(t, res.Context, "Respuesta generada por IA")
}

func TestAnswerLegacyKeywordFallback(t *testing.T) {
	a := NewAnswerer(&stubLLM{err: errors.New("service unavailable")})

	text := "La mitocondria es el orgánulo celular. Produce energía en forma de ATP. " +
		"El núcleo contiene el ADN. La membrana delimita la célula."
	materials := []models.Material{
		{ID: "m1", Title: "Célula", RawText: &text, CourseCode: "BIO101", CourseName: "Biología", Author: strPtr("García")},
	}

	res := a.AnswerLegacy(context.Background(), "dime sobre la mitocondria", materials)

	assert.Contains(t, res.Answer, "Información encontrada")
	assert.Contains(t, res.Answer, "mitocondria")
	assert.Contains(t, res.Answer, "Palabras clave")
	assert.Contains(t, res.Answer, "Respuesta generada por búsqueda básica")
	assert.Contains(t, res.Context, "Búsqueda por keywords")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "García", res.Sources[0].Author)
}

func TestAnswerLegacyKeywordFallbackNoMatch(t *testing.T) {
	a := NewAnswerer(&stubLLM{err: errors.New("service unavailable")})

	text := strings.Repeat("Contenido sobre historia del arte renacentista. ", 10)
	materials := []models.Material{
		{ID: "m1", Title: "Arte", RawText: &text, CourseCode: "ART100", CourseName: "Arte"},
	}

	res := a.AnswerLegacy(context.Background(), "¿qué es la fotosíntesis?", materials)

	assert.Contains(t, res.Answer, "No encontré coincidencias exactas")
	assert.Contains(t, res.Answer, "Vista previa del material")
	assert.Contains(t, res.Answer, "Respuesta generada por búsqueda básica")
}

func TestKeywordFallbackStopwordsIgnored(t *testing.T) {
	// Every question word is a stopword or too short, so nothing matches
	// even though "el"/"la" appear in the text.
	res := keywordFallback("¿qué es el de la?", "el texto de la prueba", nil, 1)
	assert.Contains(t, res.Answer, "No encontré coincidencias exactas")
}

func TestMatchingSentencesLimit(t *testing.T) {
	text := "La célula tiene mitocondrias. Las mitocondrias producen ATP. " +
		"El ATP viene de la mitocondria. La mitocondria tiene su propio ADN. Otro dato."

	got := matchingSentences(text, []string{"mitocondria"}, 3)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Contains(t, strings.ToLower(s), "mitocondria")
	}
}
