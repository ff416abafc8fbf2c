package pdf

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// A page with more than this many characters of selectable text marks the
// document as digital; scanned pages yield no or near-no layout text.
const minDigitalPageChars = 50

// DefaultSamplePages is how many leading pages classification inspects.
const DefaultSamplePages = 3

// classifyPages applies the text-density heuristic to sampled page texts.
// If layout analysis itself fails (corrupt file), Extractor.classify
// defaults to digital with a logged warning; the caller must expect a
// possible extraction failure afterwards.
func classifyPages(texts []string) Kind {
	for _, t := range texts {
		if len(strings.TrimSpace(t)) > minDigitalPageChars {
			return KindDigital
		}
	}
	return KindScanned
}

// readPageTexts extracts the layout text of up to maxPages leading pages
// (all pages when maxPages <= 0) and reports the document's page count.
// Pages that cannot be parsed individually are returned as empty strings.
func readPageTexts(data []byte, maxPages int) ([]string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}

	total := r.NumPage()
	n := total
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, total, nil
}
