// Package pdf classifies course PDFs and extracts their text, either from
// the selectable text layout or through OCR for scanned documents.
package pdf

// Extraction method tags recorded in chunk metadata.
const (
	MethodLayout  = "layout"
	MethodDocconv = "docconv"
	MethodOCR     = "vision_ocr"
)

// Kind is the modality of a PDF: digital (selectable text) or scanned
// (image-only pages).
type Kind string

const (
	KindDigital Kind = "digital"
	KindScanned Kind = "scanned"
)

// PageBreak records the character offset in the extracted text at which a
// page's content (including its separator marker) begins.
type PageBreak struct {
	Page         int `json:"page"`
	CharPosition int `json:"char_position"`
}

// PageConfidence is the mean OCR confidence (0-100) for one page.
type PageConfidence struct {
	Page       int     `json:"page"`
	Confidence float64 `json:"confidence"`
}

// Meta describes one extraction run. PageBreaks only lists pages that
// contributed text; TotalPages counts every page in the document.
type Meta struct {
	TotalPages      int
	Method          string
	PageBreaks      []PageBreak
	TotalChars      int
	TotalTokens     int
	OCRLanguage     string
	PageConfidences []PageConfidence
	AvgConfidence   float64
}

// PageForOffset attributes a character offset to the page whose recorded
// break position is the highest one at or below the offset. Offsets before
// the first break belong to page 1.
func (m *Meta) PageForOffset(offset int) int {
	page := 1
	for _, pb := range m.PageBreaks {
		if offset >= pb.CharPosition {
			page = pb.Page
		}
	}
	return page
}
