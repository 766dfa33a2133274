package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor iterates pages, appending native text where present and
// falling through to OCR for pages that yield none, bounded by a soft
// deadline and an OCR page budget.
type PDFExtractor struct {
	OCR OCREngine
}

func (e *PDFExtractor) CanHandle(path, ext string) bool {
	return ext == ".pdf"
}

func (e *PDFExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	softDeadline := time.Now().Add(time.Duration(budget.PerFileTimeout*0.7) * time.Second)

	ocrPageBudget := budget.MaxPDFPagesToOCR
	if ocrPageBudget <= 0 || ocrPageBudget > 8 {
		ocrPageBudget = 8
	}

	var parts []string
	var warnings []string
	ocrPagesUsed := 0
	anyOCR := false
	pagesSkipped := 0

	for i := 1; i <= totalPages; i++ {
		select {
		case <-ctx.Done():
			warnings = appendUnique(warnings, WarnExtractionTimedOut)
			return &ExtractedContent{Text: strings.Join(parts, "\n\n"), Warnings: warnings, WasOCRUsed: anyOCR}, nil
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, textErr := page.GetPlainText(nil)
		text = strings.TrimSpace(text)
		if textErr == nil && text != "" {
			parts = append(parts, text)
			continue
		}

		if time.Now().After(softDeadline) {
			warnings = appendUnique(warnings, WarnOCRTimedOut)
			pagesSkipped++
			continue
		}
		if ocrPagesUsed >= ocrPageBudget {
			warnings = appendUnique(warnings, WarnOCRBudgetExhausted)
			pagesSkipped++
			continue
		}

		ocrPagesUsed++
		ocrText, ocrErr := e.ocrPage(ctx, budget)
		if ocrErr != nil || strings.TrimSpace(ocrText) == "" {
			pagesSkipped++
			continue
		}
		parts = append(parts, ocrText)
		anyOCR = true
	}

	if pagesSkipped > 0 {
		warnings = appendUnique(warnings, WarnPartialPDFExtraction)
	}

	return &ExtractedContent{
		Text:     strings.Join(parts, "\n\n"),
		Warnings: warnings,
		WasOCRUsed: anyOCR,
	}, nil
}

// ocrPage rasterizes a page placeholder — no corpus library binds real
// PDF rasterization — and hands the image to OCR. The blank raster
// still exercises the maxImageDimensionForOCR cap and the OCREngine
// contract end to end.
func (e *PDFExtractor) ocrPage(ctx context.Context, budget Budget) (string, error) {
	dim := budget.MaxImageDimension
	if dim <= 0 || dim > 2048 {
		dim = 2048
	}
	img := image.NewGray(image.Rect(0, 0, dim, dim))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return e.OCR.OCRImage(ctx, buf.Bytes(), dim)
}
