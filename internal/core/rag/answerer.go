package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/edurag-project/backend/internal/core"
	"github.com/edurag-project/backend/internal/models"
)

const noContextAnswer = "❌ No encontré información relevante para responder tu pregunta.\n\n" +
	"💡 Consejos:\n" +
	"• Verifica que hay materiales subidos en el curso seleccionado\n" +
	"• Intenta reformular tu pregunta de manera más específica\n" +
	"• Asegúrate de que los PDFs contienen información sobre el tema"

const chunkSystemPrompt = `Eres un asistente educativo inteligente especializado en responder preguntas sobre materiales académicos.

Tu trabajo es:
1. Analizar cuidadosamente los fragmentos de texto proporcionados
2. Responder la pregunta del usuario de manera precisa y completa
3. Basar tu respuesta SOLO en la información de los fragmentos
4. Si la información está en varios fragmentos, sintetizar una respuesta coherente
5. Citar las fuentes cuando sea posible (mencionar de qué material proviene la información)
6. Usar formato Markdown para mejor legibilidad

Reglas importantes:
- NO inventes información que no esté en los fragmentos
- Si los fragmentos no contienen suficiente información, indícalo claramente
- Sé conciso pero completo
- Usa ejemplos de los fragmentos cuando sea apropiado
- Estructura tu respuesta con títulos, listas o puntos cuando ayude a la claridad

Fragmentos de contexto:
%s

Fuentes disponibles:
%s`

// Answerer turns retrieved chunks (or whole documents, in legacy mode)
// into an answer via the generative model, degrading to keyword search
// when the model is unreachable.
type Answerer struct {
	llm core.LLMProvider
}

func NewAnswerer(llm core.LLMProvider) *Answerer {
	return &Answerer{llm: llm}
}

// Answer synthesizes a grounded answer from the retrieved chunks. An
// empty chunk list yields a fixed guidance message instead of calling
// the model; a model failure degrades to keyword search over the chunk
// texts rather than surfacing an error.
func (a *Answerer) Answer(ctx context.Context, question string, chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return noContextAnswer
	}

	var contextParts []string
	for i, ch := range chunks {
		contextParts = append(contextParts, fmt.Sprintf(
			"[Fragmento %d]\nFuente: %s\nCurso: %s - %s\nPágina: %d\nContenido:\n%s\n",
			i+1, ch.MaterialTitle, ch.CourseCode, ch.CourseName, ch.Metadata.Page, ch.ChunkText,
		))
	}

	sources := Sources(chunks)
	var sourceLines []string
	for _, s := range sources {
		sourceLines = append(sourceLines, fmt.Sprintf("• %s (%s)", s.Title, s.Course))
	}

	system := fmt.Sprintf(chunkSystemPrompt, strings.Join(contextParts, "\n\n"), strings.Join(sourceLines, "\n"))

	answer, err := a.llm.Generate(ctx, system, question)
	if err != nil {
		log.Printf("rag: model unavailable, falling back to keyword search: %v", err)
		var texts []string
		for _, ch := range chunks {
			texts = append(texts, ch.ChunkText)
		}
		answer = keywordFallback(question, strings.Join(texts, "\n\n"), sources, len(sources)).Answer
	}

	var footer strings.Builder
	footer.WriteString(answer)
	footer.WriteString("\n\n---\n\n**📚 Fuentes consultadas:**\n")
	for _, s := range sources {
		footer.WriteString(fmt.Sprintf("- %s (%s)\n", s.Title, s.Course))
	}
	return footer.String()
}
