package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataFallbackExtractor_HandlesAnyPath(t *testing.T) {
	e := &MetadataFallbackExtractor{}
	require.True(t, e.CanHandle("whatever.bin", ".bin"))
}

func TestMetadataFallbackExtractor_ReturnsMetadataWarning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o644))

	e := &MetadataFallbackExtractor{}
	content, err := e.Extract(context.Background(), path, Budget{})
	require.NoError(t, err)
	require.Empty(t, content.Text)
	require.Contains(t, content.Warnings, WarnMetadataOnlyFallback)
	require.Equal(t, "archive.bin", content.Title)
	require.Contains(t, content.Metadata, "size_bytes")
}
