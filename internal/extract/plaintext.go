package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var plainTextExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".json": {}, ".yaml": {},
	".yml": {}, ".xml": {}, ".log": {}, ".ini": {}, ".toml": {}, ".cfg": {},
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".java": {}, ".c": {}, ".h": {},
	".cpp": {}, ".rs": {}, ".rb": {}, ".sh": {}, ".sql": {},
}

// PlainTextExtractor reads a bounded prefix of the file and decodes it
// with the first encoding that round-trips cleanly.
type PlainTextExtractor struct{}

func (e *PlainTextExtractor) CanHandle(path, ext string) bool {
	_, ok := plainTextExtensions[ext]
	return ok
}

func (e *PlainTextExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	readCap := budget.MaxExtractedCharacters * 6
	if readCap <= 0 {
		readCap = 1 << 20
	}

	raw, err := io.ReadAll(io.LimitReader(f, int64(readCap)+1))
	if err != nil {
		return nil, err
	}

	truncated := int64(len(raw)) > int64(readCap) || info.Size() > int64(len(raw))
	if int64(len(raw)) > int64(readCap) {
		raw = raw[:readCap]
	}

	text, usedFallback := decodeBestEffort(raw)

	content := &ExtractedContent{
		Text:     text,
		Title:    filepath.Base(path),
		Metadata: map[string]string{"source_path": path},
	}
	if truncated {
		content.Warnings = append(content.Warnings, WarnTextTruncatedLargeFile)
	}
	if usedFallback {
		content.Warnings = append(content.Warnings, WarnDecodeFallbackUsed)
	}
	return content, nil
}

// decodeBestEffort tries UTF-8, UTF-16 (LE/BE, BOM required),
// UTF-32, Latin-1, and macOS Roman in that order, returning the first
// decode that produces valid, printable-dominant text.
func decodeBestEffort(raw []byte) (text string, usedFallback bool) {
	if utf8.Valid(raw) {
		return string(raw), false
	}

	if s, ok := decodeUTF16(raw); ok {
		return s, true
	}
	if s, ok := decodeUTF32(raw); ok {
		return s, true
	}

	if s, ok := decodeWithEncoding(raw, charmap.ISO8859_1); ok {
		return s, true
	}
	if s, ok := decodeWithEncoding(raw, charmap.Macintosh); ok {
		return s, true
	}

	// Nothing decoded cleanly; fall back to a lossy UTF-8 coercion so
	// the document still gets something searchable.
	return strings.ToValidUTF8(string(raw), "�"), true
}

func decodeWithEncoding(raw []byte, enc encoding.Encoding) (string, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) || !isPrintableDominant(out) {
		return "", false
	}
	return string(out), true
}

func decodeUTF16(raw []byte) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	var dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	out, err := dec.NewDecoder().Bytes(raw)
	if err == nil && utf8.Valid(out) && isPrintableDominant(out) {
		return string(out), true
	}
	dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	out, err = dec.NewDecoder().Bytes(raw)
	if err == nil && utf8.Valid(out) && isPrintableDominant(out) {
		return string(out), true
	}
	return "", false
}

// decodeUTF32 handles the rare UTF-32 case by hand since x/text does
// not ship a UTF-32 codec.
func decodeUTF32(raw []byte) (string, bool) {
	if len(raw) < 4 || len(raw)%4 != 0 {
		return "", false
	}
	littleEndian := len(raw) >= 4 && raw[0] == 0xFF && raw[1] == 0xFE && raw[2] == 0x00 && raw[3] == 0x00
	var b strings.Builder
	for i := 0; i+4 <= len(raw); i += 4 {
		var r rune
		if littleEndian {
			r = rune(uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24)
		} else {
			r = rune(uint32(raw[i])<<24 | uint32(raw[i+1])<<16 | uint32(raw[i+2])<<8 | uint32(raw[i+3]))
		}
		if r < 0 || r > utf8.MaxRune || (r >= 0xD800 && r <= 0xDFFF) {
			return "", false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if !isPrintableDominant([]byte(out)) {
		return "", false
	}
	return out, true
}

func isPrintableDominant(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	printable := 0
	total := 0
	for _, r := range string(b) {
		total++
		if r == '\n' || r == '\t' || r == '\r' || (r >= 0x20 && r != 0xFFFD) {
			printable++
		}
	}
	return total > 0 && float64(printable)/float64(total) > 0.85
}
