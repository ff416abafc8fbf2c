package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/edurag-project/backend/internal/models"
)

// maxLegacyContext caps the combined raw text sent to the model in
// whole-document mode.
const maxLegacyContext = 8000

const truncationMarker = "\n\n[...contenido truncado por límite de tokens...]"

const legacySystemPrompt = `Eres un asistente educativo experto que ayuda a estudiantes a entender materiales de cursos.

Tu tarea es responder preguntas basándote ÚNICAMENTE en el contexto proporcionado de los materiales del curso.

Instrucciones:
1. Responde en español de forma clara y educativa
2. Si la información está en el contexto, proporciona una respuesta detallada
3. Si NO está en el contexto, di claramente que no encontraste esa información
4. Cita fragmentos relevantes del material cuando sea apropiado
5. Sé conciso pero completo

CONTEXTO DE LOS MATERIALES:
%s`

const noMaterialsAnswer = "❌ No encontré materiales con los filtros seleccionados.\n\n" +
	"💡 Consejo: Verifica que haya materiales en ese curso o intenta con 'Todos los cursos'."

const degradedFooter = "\n\n⚠️ _Respuesta generada por búsqueda básica (OpenAI no disponible)_"

// LegacyResult is the whole-document answer together with its sources
// and a human-readable description of the context used.
type LegacyResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Context string   `json:"context"`
}

// AnswerLegacy answers from the concatenated raw text of filtered
// materials, without vector retrieval. When the model call fails the
// answer comes from keyword matching over the same text.
func (a *Answerer) AnswerLegacy(ctx context.Context, question string, materials []models.Material) LegacyResult {
	if len(materials) == 0 {
		return LegacyResult{
			Answer:  noMaterialsAnswer,
			Sources: []Source{},
			Context: "Sin materiales disponibles",
		}
	}

	var texts []string
	var sources []Source
	for _, m := range materials {
		sources = append(sources, Source{
			MaterialID: m.ID,
			Title:      m.Title,
			Course:     fmt.Sprintf("%s - %s", m.CourseCode, m.CourseName),
			Author:     authorOrUnknown(m.Author),
		})
		if m.RawText != nil && strings.TrimSpace(*m.RawText) != "" {
			texts = append(texts, strings.TrimSpace(*m.RawText))
		} else {
			log.Printf("rag: material %q has no raw text", m.Title)
		}
	}

	if len(texts) == 0 {
		var names []string
		for _, m := range materials {
			names = append(names, "• "+m.Title)
		}
		return LegacyResult{
			Answer: fmt.Sprintf("⚠️ **Encontré %d material(es), pero ninguno tiene contenido de texto.**\n\n"+
				"📝 Materiales encontrados:\n%s\n\n"+
				"💡 **Solución:** Ve a Administración → Materiales y agrega contenido en el campo 'Contenido/Texto' al crear o editar el material.",
				len(materials), strings.Join(names, "\n")),
			Sources: sources,
			Context: fmt.Sprintf("%d materiales sin texto procesable", len(materials)),
		}
	}

	combined := strings.Join(texts, "\n\n")
	if len(combined) > maxLegacyContext {
		combined = combined[:maxLegacyContext] + truncationMarker
		log.Printf("rag: legacy context truncated to %d characters", maxLegacyContext)
	}

	answer, err := a.llm.Generate(ctx, fmt.Sprintf(legacySystemPrompt, combined), question)
	if err != nil {
		log.Printf("rag: model unavailable, falling back to keyword search: %v", err)
		return keywordFallback(question, combined, sources, len(materials))
	}

	return LegacyResult{
		Answer:  answer,
		Sources: sources,
		Context: fmt.Sprintf("✨ Respuesta generada por IA • Consultados %d materiales • %d caracteres de contexto", len(materials), len(combined)),
	}
}

// spanishStopWords are question words excluded from keyword extraction.
var spanishStopWords = map[string]bool{
	"que": true, "es": true, "el": true, "la": true, "los": true,
	"las": true, "un": true, "una": true, "de": true, "del": true,
	"en": true, "por": true, "para": true, "con": true, "sobre": true,
	"como": true, "qué": true, "cuál": true, "cómo": true,
}

func keywordFallback(question, combined string, sources []Source, materialCount int) LegacyResult {
	questionLower := strings.ToLower(question)
	combinedLower := strings.ToLower(combined)

	var relevant []string
	for _, kw := range strings.Fields(questionLower) {
		if len([]rune(kw)) <= 2 || spanishStopWords[kw] {
			continue
		}
		if strings.Contains(combinedLower, kw) {
			relevant = append(relevant, kw)
		}
	}

	var answer string
	if len(relevant) == 0 {
		answer = "🤔 **No encontré coincidencias exactas para tu pregunta.**\n\n" +
			fmt.Sprintf("📚 **Vista previa del material:**\n%s...\n\n", preview(combined, 300)) +
			"💡 **Nota:** Servicio de IA temporalmente no disponible. Usa búsqueda por palabras clave."
	} else {
		matched := matchingSentences(combined, relevant, 3)
		if len(matched) > 0 {
			if len(matched) > 2 {
				matched = matched[:2]
			}
			answer = "✅ **Información encontrada:**\n\n" +
				strings.Join(matched, ". ") + "." +
				fmt.Sprintf("\n\n🔑 **Palabras clave:** %s", strings.Join(relevant, ", "))
		} else {
			answer = "El material contiene información relacionada.\n\n" +
				fmt.Sprintf("📄 **Fragmento:**\n%s...", preview(combined, 300))
		}
	}

	return LegacyResult{
		Answer:  answer + degradedFooter,
		Sources: sources,
		Context: fmt.Sprintf("Búsqueda por keywords • %d materiales consultados", materialCount),
	}
}

// matchingSentences splits on the first sentence separator present in
// the text and collects up to limit sentences containing a keyword.
func matchingSentences(text string, keywords []string, limit int) []string {
	sentences := []string{text}
	for _, sep := range []string{". ", ".\n", "! ", "? "} {
		if strings.Contains(text, sep) {
			sentences = strings.Split(text, sep)
			break
		}
	}

	var out []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(s))
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func authorOrUnknown(a *string) string {
	if a == nil || *a == "" {
		return "Desconocido"
	}
	return *a
}
