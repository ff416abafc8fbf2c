package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag-project/backend/internal/core"
)

func approxTokens(s string) int { return (len(s) + 3) / 4 }

// fakeReader replaces ledongthuc parsing with canned page texts.
func fakeReader(pages []string, err error) func([]byte, int) ([]string, int, error) {
	return func(_ []byte, maxPages int) ([]string, int, error) {
		if err != nil {
			return nil, 0, err
		}
		n := len(pages)
		if maxPages > 0 && maxPages < n {
			n = maxPages
		}
		return pages[:n], len(pages), nil
	}
}

type fakeOCR struct {
	pages []core.OCRPage
	err   error
}

func (f *fakeOCR) RecognizePDF(context.Context, []byte) ([]core.OCRPage, error) {
	return f.pages, f.err
}

func TestExtractDigitalPageBreaks(t *testing.T) {
	page1 := "first page body " + strings.Repeat("with plenty of selectable text ", 3)
	page2 := "second page body"
	e := NewExtractor(nil, approxTokens)
	e.readPages = fakeReader([]string{page1, page2}, nil)

	text, meta, err := e.ExtractSmart(context.Background(), []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, MethodLayout, meta.Method)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Contains(t, text, "--- Page 1 ---")
	assert.Contains(t, text, "--- Page 2 ---")
	assert.Contains(t, text, "first page body")

	require.Len(t, meta.PageBreaks, 2)
	assert.Equal(t, PageBreak{Page: 1, CharPosition: 0}, meta.PageBreaks[0])
	// Page 2 begins where page 1's marker plus body end.
	expected := len(fmt.Sprintf("\n\n--- Page 1 ---\n\n%s", page1))
	assert.Equal(t, PageBreak{Page: 2, CharPosition: expected}, meta.PageBreaks[1])

	assert.Equal(t, len(text), meta.TotalChars)
	assert.Equal(t, approxTokens(text), meta.TotalTokens)
}

func TestExtractDigitalSkipsEmptyPages(t *testing.T) {
	e := NewExtractor(nil, approxTokens)
	e.readPages = fakeReader([]string{"page one text goes here and is long enough", "", "page three"}, nil)

	text, meta, err := e.ExtractDigital([]byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, 3, meta.TotalPages)
	require.Len(t, meta.PageBreaks, 2)
	assert.Equal(t, 1, meta.PageBreaks[0].Page)
	assert.Equal(t, 3, meta.PageBreaks[1].Page)
	assert.NotContains(t, text, "--- Page 2 ---")
}

func TestExtractSmartScannedWithoutOCRFails(t *testing.T) {
	e := NewExtractor(nil, approxTokens)
	e.readPages = fakeReader([]string{"", "", ""}, nil)

	_, _, err := e.ExtractSmart(context.Background(), []byte("pdf"))
	require.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestExtractSmartRoutesScannedToOCR(t *testing.T) {
	ocr := &fakeOCR{pages: []core.OCRPage{
		{Page: 1, Text: "texto reconocido de la página uno", Confidence: 91.237},
		{Page: 2, Text: "", Confidence: 12.0},
		{Page: 3, Text: "texto de la página tres", Confidence: 88.5},
	}}
	e := NewExtractor(ocr, approxTokens)
	e.readPages = fakeReader([]string{"", "", ""}, nil)

	text, meta, err := e.ExtractSmart(context.Background(), []byte("pdf"))
	require.NoError(t, err)

	assert.Equal(t, MethodOCR, meta.Method)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, "es+en", meta.OCRLanguage)

	assert.Contains(t, text, "--- Página 1 ---")
	assert.NotContains(t, text, "--- Página 2 ---")
	assert.Contains(t, text, "--- Página 3 ---")

	// Page 2 had no text: absent from breaks, present in confidences.
	require.Len(t, meta.PageBreaks, 2)
	assert.Equal(t, []int{1, 3}, []int{meta.PageBreaks[0].Page, meta.PageBreaks[1].Page})
	require.Len(t, meta.PageConfidences, 3)
	assert.Equal(t, 91.24, meta.PageConfidences[0].Confidence)

	avg := (91.24 + 12.0 + 88.5) / 3
	assert.InDelta(t, avg, meta.AvgConfidence, 0.01)
}

func TestExtractOCRPropagatesError(t *testing.T) {
	e := NewExtractor(&fakeOCR{err: errors.New("vision quota exceeded")}, approxTokens)

	_, _, err := e.ExtractOCR(context.Background(), []byte("pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vision quota exceeded")
}

func TestPageForOffset(t *testing.T) {
	meta := &Meta{PageBreaks: []PageBreak{
		{Page: 1, CharPosition: 0},
		{Page: 2, CharPosition: 100},
		{Page: 5, CharPosition: 250},
	}}

	assert.Equal(t, 1, meta.PageForOffset(0))
	assert.Equal(t, 1, meta.PageForOffset(99))
	assert.Equal(t, 2, meta.PageForOffset(100))
	assert.Equal(t, 2, meta.PageForOffset(249))
	assert.Equal(t, 5, meta.PageForOffset(1000))
	// Offsets before any break (including a lookup miss) belong to page 1.
	assert.Equal(t, 1, (&Meta{}).PageForOffset(42))
	assert.Equal(t, 1, meta.PageForOffset(-1))
}

func TestAssemblePagesOffsetsMatchContent(t *testing.T) {
	texts := []string{"alpha", "beta", "gamma"}
	text, breaks := assemblePages(texts, pageMarker)

	require.Len(t, breaks, 3)
	for i, pb := range breaks {
		marker := pageMarker(pb.Page)
		assert.True(t, strings.HasPrefix(text[pb.CharPosition:], marker+texts[i]),
			"break for page %d does not point at its content", pb.Page)
	}
}
