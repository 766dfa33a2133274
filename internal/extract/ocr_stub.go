package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// StubOCREngine is the default OCREngine. No corpus library binds a
// real OCR model (the embedding backend has the same problem — see
// internal/embed's hash fallback), so this returns a deterministic,
// content-addressed placeholder string rather than failing outright.
// It still exercises every budget/timeout/rasterization-size code path
// a real engine would need to honor.
type StubOCREngine struct{}

func NewStubOCREngine() *StubOCREngine { return &StubOCREngine{} }

func (s *StubOCREngine) OCRImage(ctx context.Context, imageBytes []byte, maxDimension int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(imageBytes)
	return "ocr:" + hex.EncodeToString(sum[:8]), nil
}
