package core

import "context"

type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// OCRPage is one page of OCR output. Confidence is a 0-100 mean of the
// per-block confidences reported by the recognizer; pages without any
// confidence data report 0.
type OCRPage struct {
	Page       int
	Text       string
	Confidence float64
}

// OCRProvider recognizes text in a scanned (image-only) PDF, page by page.
type OCRProvider interface {
	RecognizePDF(ctx context.Context, data []byte) ([]OCRPage, error)
}

// OCRLanguageTags are the recognition languages for scanned course
// material: Spanish plus English.
func OCRLanguageTags() []string {
	return []string{"es", "en"}
}
