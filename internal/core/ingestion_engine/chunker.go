package ingestion_engine

import (
	"strings"

	"github.com/edurag-project/backend/internal/core/pdf"
	"github.com/edurag-project/backend/internal/models"
)

// Separator hierarchy tried in order: paragraph break, line break, sentence
// end, word boundary, then a last-resort character split.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// charsPerToken converts token budgets to character budgets; the splitter
// operates on characters (~4 chars per token for western text).
const charsPerToken = 4

// TokenCountFunc counts model tokens in a text span.
type TokenCountFunc func(string) int

// Chunker splits extracted text into overlapping, page-attributed chunks.
// ChunkSize and ChunkOverlap are in tokens.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	CountTokens  TokenCountFunc
}

func NewChunker(chunkSize, chunkOverlap int, count TokenCountFunc) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 50
	}
	if count == nil {
		count = func(s string) int { return (len(s) + 3) / 4 }
	}
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, CountTokens: count}
}

// Chunk splits text and attaches page attribution and the document-level
// extraction metadata to every chunk. Chunk indices are contiguous 0..N-1
// in source order. Empty or whitespace-only text yields no chunks; the
// caller treats that as an ingestion failure.
func (c *Chunker) Chunk(text string, meta *pdf.Meta) []models.MaterialChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	budget := c.ChunkSize * charsPerToken
	overlap := c.ChunkOverlap * charsPerToken

	pieces := splitRecursive(text, chunkSeparators, budget, overlap)

	chunks := make([]models.MaterialChunk, 0, len(pieces))
	for idx, piece := range pieces {
		// First-occurrence search locates the chunk's start offset for page
		// attribution. Text repeated verbatim earlier in the document will
		// attribute to the earliest occurrence.
		start := strings.Index(text, piece)

		cm := models.ChunkMetadata{
			Page:       1,
			CharLength: len(piece),
		}
		if meta != nil {
			cm.Page = meta.PageForOffset(start)
			cm.ExtractionMethod = meta.Method
			cm.TotalPages = meta.TotalPages
			cm.TotalChars = meta.TotalChars
			cm.OCRLanguage = meta.OCRLanguage
			cm.AvgConfidence = meta.AvgConfidence
		}

		chunks = append(chunks, models.MaterialChunk{
			ChunkIndex: idx,
			ChunkText:  piece,
			TokenCount: c.CountTokens(piece),
			Metadata:   cm,
		})
	}
	return chunks
}

// splitRecursive splits text with the earliest separator present, merging
// the resulting pieces back into chunks under the character budget with the
// requested overlap, and recursing with the remaining separators on pieces
// that are still too long.
func splitRecursive(text string, seps []string, budget, overlap int) []string {
	sep := seps[len(seps)-1]
	rest := []string{}
	for i, s := range seps {
		if s == "" {
			sep = ""
			rest = seps[i+1:]
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return hardSplit(text, budget, overlap)
	}

	splits := strings.Split(text, sep)

	var final []string
	var good []string
	for _, s := range splits {
		if len(s) < budget {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, mergeSplits(good, sep, budget, overlap)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, splitRecursive(s, rest, budget, overlap)...)
		}
	}
	if len(good) > 0 {
		final = append(final, mergeSplits(good, sep, budget, overlap)...)
	}
	return final
}

// mergeSplits greedily packs pieces into chunks at most budget chars long,
// carrying an overlap-sized tail of pieces into the next chunk.
func mergeSplits(splits []string, sep string, budget, overlap int) []string {
	var docs []string
	var cur []string
	total := 0

	sepLen := len(sep)
	add := func(s string) {
		if len(cur) > 0 {
			total += sepLen
		}
		cur = append(cur, s)
		total += len(s)
	}
	dropFront := func() {
		total -= len(cur[0])
		if len(cur) > 1 {
			total -= sepLen
		}
		cur = cur[1:]
	}

	for _, s := range splits {
		grown := total + len(s)
		if len(cur) > 0 {
			grown += sepLen
		}
		if grown > budget && len(cur) > 0 {
			if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
				docs = append(docs, doc)
			}
			// Shrink to the overlap tail before starting the next chunk.
			for len(cur) > 0 && (total > overlap || (total+len(s)+sepLen > budget && total > 0)) {
				dropFront()
			}
		}
		add(s)
	}
	if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// hardSplit is the empty-separator fallback: fixed windows of budget runes
// stepping budget-overlap at a time.
func hardSplit(text string, budget, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= budget {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	step := budget - overlap
	if step <= 0 {
		step = budget
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		if t := strings.TrimSpace(string(runes[start:end])); t != "" {
			out = append(out, t)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
