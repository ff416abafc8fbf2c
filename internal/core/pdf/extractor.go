package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"code.sajari.com/docconv"

	"github.com/edurag-project/backend/internal/core"
)

// ErrOCRUnavailable is returned when a scanned PDF needs OCR but no OCR
// provider is configured.
var ErrOCRUnavailable = errors.New("OCR not available: configure a Vision OCR provider to process scanned PDFs")

// TokenCountFunc counts model tokens in a text span.
type TokenCountFunc func(string) int

// Extractor routes a PDF to the right extraction strategy: layout text for
// digital documents, OCR for scanned ones. OCR may be nil; scanned
// documents then fail with ErrOCRUnavailable.
type Extractor struct {
	OCR         core.OCRProvider
	CountTokens TokenCountFunc

	// readPages is swappable for tests; defaults to ledongthuc parsing.
	readPages func(data []byte, maxPages int) ([]string, int, error)
}

func NewExtractor(ocr core.OCRProvider, count TokenCountFunc) *Extractor {
	if count == nil {
		count = func(string) int { return 0 }
	}
	return &Extractor{OCR: ocr, CountTokens: count, readPages: readPageTexts}
}

// ExtractSmart classifies the document and dispatches to the matching
// strategy. Scanned documents without an OCR provider fail fast.
func (e *Extractor) ExtractSmart(ctx context.Context, data []byte) (string, *Meta, error) {
	kind := e.classify(data)
	if kind == KindScanned {
		log.Printf("pdf: detected scanned document, using OCR")
		if e.OCR == nil {
			return "", nil, ErrOCRUnavailable
		}
		return e.ExtractOCR(ctx, data)
	}
	log.Printf("pdf: detected digital document, using layout extraction")
	return e.ExtractDigital(data)
}

func (e *Extractor) classify(data []byte) Kind {
	texts, _, err := e.readPages(data, DefaultSamplePages)
	if err != nil {
		log.Printf("pdf: type detection failed, assuming digital: %v", err)
		return KindDigital
	}
	return classifyPages(texts)
}

// ExtractDigital reads the selectable text layout page by page. If the
// per-page parser cannot open the document at all, it falls back to a
// whole-document docconv conversion; that attempt and its outcome are
// logged so the degradation is observable.
func (e *Extractor) ExtractDigital(data []byte) (string, *Meta, error) {
	texts, total, err := e.readPages(data, 0)
	if err != nil {
		log.Printf("pdf: layout extraction failed, trying docconv: %v", err)
		return e.extractDocconv(data)
	}

	text, breaks := assemblePages(texts, pageMarker)
	meta := &Meta{
		TotalPages:  total,
		Method:      MethodLayout,
		PageBreaks:  breaks,
		TotalChars:  len(text),
		TotalTokens: e.CountTokens(text),
	}
	return text, meta, nil
}

func (e *Extractor) extractDocconv(data []byte) (string, *Meta, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err != nil {
		return "", nil, fmt.Errorf("extract text from pdf: %w", err)
	}
	log.Printf("pdf: docconv fallback extracted %d chars", len(res.Body))
	meta := &Meta{
		TotalPages:  1,
		Method:      MethodDocconv,
		PageBreaks:  []PageBreak{{Page: 1, CharPosition: 0}},
		TotalChars:  len(res.Body),
		TotalTokens: e.CountTokens(res.Body),
	}
	return res.Body, meta, nil
}

// ExtractOCR recognizes a scanned PDF through the OCR provider. Pages with
// no recognized text are skipped from the page-break table but still count
// toward TotalPages.
func (e *Extractor) ExtractOCR(ctx context.Context, data []byte) (string, *Meta, error) {
	if e.OCR == nil {
		return "", nil, ErrOCRUnavailable
	}

	pages, err := e.OCR.RecognizePDF(ctx, data)
	if err != nil {
		return "", nil, fmt.Errorf("ocr extraction: %w", err)
	}

	meta := &Meta{
		TotalPages:  len(pages),
		Method:      MethodOCR,
		OCRLanguage: strings.Join(core.OCRLanguageTags(), "+"),
	}

	var b strings.Builder
	for _, p := range pages {
		meta.PageConfidences = append(meta.PageConfidences, PageConfidence{
			Page:       p.Page,
			Confidence: round2(p.Confidence),
		})

		if strings.TrimSpace(p.Text) == "" {
			log.Printf("pdf: no OCR text on page %d", p.Page)
			continue
		}
		meta.PageBreaks = append(meta.PageBreaks, PageBreak{
			Page:         p.Page,
			CharPosition: b.Len(),
		})
		b.WriteString(ocrPageMarker(p.Page))
		b.WriteString(p.Text)
	}

	text := b.String()
	meta.TotalChars = len(text)

	var sum float64
	for _, pc := range meta.PageConfidences {
		sum += pc.Confidence
	}
	if len(meta.PageConfidences) > 0 {
		meta.AvgConfidence = round2(sum / float64(len(meta.PageConfidences)))
	}

	log.Printf("pdf: OCR extraction done: %d chars, avg confidence %.2f%%", len(text), meta.AvgConfidence)
	return text, meta, nil
}

// assemblePages joins page texts with a marker, recording for each page that
// contributed text the offset at which its content begins.
func assemblePages(texts []string, marker func(int) string) (string, []PageBreak) {
	var b strings.Builder
	var breaks []PageBreak
	for i, t := range texts {
		if t == "" {
			continue
		}
		pageNum := i + 1
		breaks = append(breaks, PageBreak{Page: pageNum, CharPosition: b.Len()})
		b.WriteString(marker(pageNum))
		b.WriteString(t)
	}
	return b.String(), breaks
}

func pageMarker(n int) string {
	return fmt.Sprintf("\n\n--- Page %d ---\n\n", n)
}

func ocrPageMarker(n int) string {
	return fmt.Sprintf("\n\n--- Página %d ---\n\n", n)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
