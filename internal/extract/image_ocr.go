package extract

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
}

// ImageOCRExtractor OCRs standalone image files, skipping anything
// larger than the configured pixel budget. No ecosystem
// image-processing library appears anywhere in the corpus, so pixel
// dimensions are read with the standard library's image.DecodeConfig
// rather than a full decode.
type ImageOCRExtractor struct {
	OCR OCREngine
}

func (e *ImageOCRExtractor) CanHandle(path, ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

func (e *ImageOCRExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("reading image dimensions: %w", err)
	}

	pixelCount := int64(cfg.Width) * int64(cfg.Height)
	maxPixels := budget.MaxImagePixelCount
	if maxPixels <= 0 {
		maxPixels = 16_000_000
	}
	if pixelCount > maxPixels {
		return &ExtractedContent{
			Warnings: []string{WarnImageTooLargeForOCR},
		}, nil
	}

	maxDim := budget.MaxImageDimension
	if maxDim <= 0 || maxDim > 2048 {
		maxDim = 2048
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := e.OCR.OCRImage(ctx, raw, maxDim)
	if err != nil {
		return nil, err
	}
	return &ExtractedContent{Text: text, WasOCRUsed: true}, nil
}
