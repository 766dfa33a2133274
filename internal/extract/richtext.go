package extract

import (
	"context"
	"net/url"
	"os"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

var richTextExtensions = map[string]struct{}{
	".html": {}, ".htm": {}, ".rtf": {}, ".doc": {},
}

// RichTextExtractor best-effort decodes HTML (via readability + markdown
// conversion), RTF (via control-word stripping), and legacy Word binary
// .doc files (via the printable-run heuristic scanner).
type RichTextExtractor struct{}

func (e *RichTextExtractor) CanHandle(path, ext string) bool {
	_, ok := richTextExtensions[ext]
	return ok
}

func (e *RichTextExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm"):
		return e.extractHTML(raw, path)
	case strings.HasSuffix(path, ".rtf"):
		return &ExtractedContent{Text: stripRTFControlWords(string(raw))}, nil
	case strings.HasSuffix(path, ".doc"):
		return &ExtractedContent{Text: scanPrintableRuns(raw)}, nil
	}
	return nil, nil
}

func (e *RichTextExtractor) extractHTML(raw []byte, path string) (*ExtractedContent, error) {
	base, _ := url.Parse("file://" + path)
	article, err := readability.FromReader(strings.NewReader(string(raw)), base)

	var articleHTML, title string
	if err == nil && strings.TrimSpace(article.Content) != "" {
		articleHTML = article.Content
		title = strings.TrimSpace(article.Title)
	} else {
		articleHTML = string(raw)
	}

	md, mdErr := htmltomarkdown.ConvertString(articleHTML)
	if mdErr != nil {
		return nil, mdErr
	}

	content := &ExtractedContent{
		Text:  strings.TrimSpace(md),
		Title: title,
	}
	return content, nil
}

var rtfControlWord = regexp.MustCompile(`\\[a-zA-Z]+-?\d*[ ]?|\\[^a-zA-Z]|[{}]`)

// stripRTFControlWords removes RTF control words and braces, leaving
// the plain-text runs. No corpus library parses RTF; this mirrors the
// same "best-effort native decode" spirit as the legacy .doc scanner.
func stripRTFControlWords(raw string) string {
	stripped := rtfControlWord.ReplaceAllString(raw, " ")
	return strings.TrimSpace(stripped)
}

// scanPrintableRuns extracts ASCII and UTF-16LE printable runs of
// length >= 4 from legacy OLE compound Word documents, a best-effort
// heuristic for formats no corpus library reads directly.
func scanPrintableRuns(raw []byte) string {
	var runs []string

	// ASCII runs.
	var cur strings.Builder
	flushASCII := func() {
		if cur.Len() >= 4 {
			runs = append(runs, cur.String())
		}
		cur.Reset()
	}
	for _, b := range raw {
		if isPrintableASCII(b) {
			cur.WriteByte(b)
		} else {
			flushASCII()
		}
	}
	flushASCII()

	// UTF-16LE runs: each code unit is a printable ASCII byte followed
	// by a zero byte.
	var cur16 strings.Builder
	flush16 := func() {
		if cur16.Len() >= 4 {
			runs = append(runs, cur16.String())
		}
		cur16.Reset()
	}
	for i := 0; i+1 < len(raw); i += 2 {
		lo, hi := raw[i], raw[i+1]
		if hi == 0 && isPrintableASCII(lo) {
			cur16.WriteByte(lo)
		} else {
			flush16()
		}
	}
	flush16()

	return strings.Join(runs, "\n")
}

func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b < 0x7F
}
