package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/stretchr/testify/require"
)

func TestPlainTextExtractor_DecodesUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello café"), 0o644))

	e := &PlainTextExtractor{}
	require.True(t, e.CanHandle(path, ".txt"))

	content, err := e.Extract(context.Background(), path, Budget{MaxExtractedCharacters: 1000})
	require.NoError(t, err)
	require.Contains(t, content.Text, "hello café")
	require.Empty(t, content.Warnings)
}

func TestPlainTextExtractor_DecodesLatin1Fallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")

	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("café résumé"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, encoded, 0o644))

	e := &PlainTextExtractor{}
	content, err := e.Extract(context.Background(), path, Budget{MaxExtractedCharacters: 1000})
	require.NoError(t, err)
	require.Contains(t, content.Text, "café")
	require.Contains(t, content.Warnings, WarnDecodeFallbackUsed)
}

func TestPlainTextExtractor_WarnsOnTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(path, big, 0o644))

	e := &PlainTextExtractor{}
	content, err := e.Extract(context.Background(), path, Budget{MaxExtractedCharacters: 100})
	require.NoError(t, err)
	require.Contains(t, content.Warnings, WarnTextTruncatedLargeFile)
}

func TestScanPrintableRuns_ExtractsASCIIAndUTF16LE(t *testing.T) {
	ascii := []byte("hello world")
	utf16le := []byte{'h', 0, 'i', 0, '!', 0, '!', 0}
	raw := append(append([]byte{}, ascii...), utf16le...)

	out := scanPrintableRuns(raw)
	require.Contains(t, out, "hello world")
	require.Contains(t, out, "hi!!")
}

func TestStripRTFControlWords_RemovesControlWords(t *testing.T) {
	rtf := `{\rtf1\ansi\deff0 {\fonttbl} Hello \b world\b0 !}`
	out := stripRTFControlWords(rtf)
	require.Contains(t, out, "Hello")
	require.Contains(t, out, "world")
	require.NotContains(t, out, `\rtf1`)
}
