package ocr

import (
	"context"
	"fmt"
	"log"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/edurag-project/backend/internal/core"
)

// Vision sync file annotation handles at most 5 pages per request.
const pagesPerRequest = 5

// VisionOCR implements core.OCRProvider on top of the Cloud Vision
// DOCUMENT_TEXT_DETECTION feature, which rasterizes and recognizes PDF
// pages server-side.
type VisionOCR struct {
	client *vision.ImageAnnotatorClient
}

func NewVisionOCR(ctx context.Context, opts ...option.ClientOption) (*VisionOCR, error) {
	cl, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionOCR{client: cl}, nil
}

func (v *VisionOCR) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// RecognizePDF OCRs every page of the PDF, batching requests at the Vision
// 5-page limit. Output is ordered by page number; pages Vision returned no
// annotation for are emitted with empty text so the caller can count them.
func (v *VisionOCR) RecognizePDF(ctx context.Context, data []byte) ([]core.OCRPage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf content")
	}

	var out []core.OCRPage

	// First request without an explicit page list: processes pages 1-5 and
	// reports the document's total page count.
	resp, err := v.annotatePages(ctx, data, nil)
	if err != nil {
		return nil, err
	}
	totalPages := int(resp.TotalPages)
	out = append(out, pagesFromResponse(resp)...)

	for start := pagesPerRequest + 1; start <= totalPages; start += pagesPerRequest {
		pages := make([]int32, 0, pagesPerRequest)
		for p := start; p < start+pagesPerRequest && p <= totalPages; p++ {
			pages = append(pages, int32(p))
		}
		resp, err := v.annotatePages(ctx, data, pages)
		if err != nil {
			return nil, err
		}
		out = append(out, pagesFromResponse(resp)...)
	}

	log.Printf("vision ocr: recognized %d/%d pages", len(out), totalPages)
	return out, nil
}

func (v *VisionOCR) annotatePages(ctx context.Context, data []byte, pages []int32) (*visionpb.AnnotateFileResponse, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{
				Content:  data,
				MimeType: "application/pdf",
			},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
			ImageContext: &visionpb.ImageContext{
				LanguageHints: core.OCRLanguageTags(),
			},
			Pages: pages,
		}},
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("vision annotate: empty response")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, fmt.Errorf("vision annotate: %s", fileResp.Error.Message)
	}
	return fileResp, nil
}

func pagesFromResponse(resp *visionpb.AnnotateFileResponse) []core.OCRPage {
	out := make([]core.OCRPage, 0, len(resp.Responses))
	for _, r := range resp.Responses {
		page := core.OCRPage{}
		if r.Context != nil {
			page.Page = int(r.Context.PageNumber)
		}
		if r.FullTextAnnotation != nil {
			page.Text = r.FullTextAnnotation.Text
			page.Confidence = pageConfidence(r.FullTextAnnotation)
		}
		out = append(out, page)
	}
	return out
}

// pageConfidence averages block confidences, reported 0-100. Blocks without
// a usable confidence are excluded from the mean.
func pageConfidence(ta *visionpb.TextAnnotation) float64 {
	var sum float64
	var n int
	for _, p := range ta.Pages {
		for _, b := range p.Blocks {
			if b.Confidence < 0 {
				continue
			}
			sum += float64(b.Confidence)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

var _ core.OCRProvider = (*VisionOCR)(nil)
