package extract

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestImageOCRExtractor_OCRsSmallImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.png")
	writeTestPNG(t, path, 32, 32)

	e := &ImageOCRExtractor{OCR: NewStubOCREngine()}
	require.True(t, e.CanHandle(path, ".png"))

	content, err := e.Extract(context.Background(), path, Budget{MaxImagePixelCount: 1_000_000, MaxImageDimension: 512})
	require.NoError(t, err)
	require.True(t, content.WasOCRUsed)
	require.NotEmpty(t, content.Text)
}

func TestImageOCRExtractor_SkipsOversizedImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "large.png")
	writeTestPNG(t, path, 100, 100)

	e := &ImageOCRExtractor{OCR: NewStubOCREngine()}
	content, err := e.Extract(context.Background(), path, Budget{MaxImagePixelCount: 1000, MaxImageDimension: 512})
	require.NoError(t, err)
	require.False(t, content.WasOCRUsed)
	require.Contains(t, content.Warnings, WarnImageTooLargeForOCR)
}
