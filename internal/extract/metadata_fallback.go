package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// MetadataFallbackExtractor is the terminal link in the chain: it
// handles anything no other extractor claimed, returning empty text
// plus file metadata.
type MetadataFallbackExtractor struct{}

func (e *MetadataFallbackExtractor) CanHandle(path, ext string) bool {
	return true
}

func (e *MetadataFallbackExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	meta := map[string]string{"source_path": path}
	if info, err := os.Stat(path); err == nil {
		meta["size_bytes"] = fmt.Sprintf("%d", info.Size())
		meta["modified_at"] = info.ModTime().UTC().Format("2006-01-02T15:04:05Z")
	}
	return &ExtractedContent{
		Title:    filepath.Base(path),
		Metadata: meta,
		Warnings: []string{WarnMetadataOnlyFallback},
	}, nil
}
