package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

var openXMLExtensions = map[string]struct{}{
	".docx": {}, ".pptx": {}, ".xlsx": {},
}

// OpenXMLExtractor reads Office OpenXML formats. docx/pptx are hand-SAX
// parsed over their ZIP part structure since no OOXML
// reader exists in the corpus; xlsx uses excelize, a real ecosystem
// reader, joining cells with " | " and rows with newlines.
type OpenXMLExtractor struct{}

func (e *OpenXMLExtractor) CanHandle(path, ext string) bool {
	_, ok := openXMLExtensions[ext]
	return ok
}

func (e *OpenXMLExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx":
		return e.extractXLSX(path)
	case ".docx":
		return e.extractZipParts(path, docxPartMatches)
	case ".pptx":
		return e.extractZipParts(path, pptxPartMatches)
	}
	return nil, fmt.Errorf("unsupported openxml extension %q", ext)
}

func (e *OpenXMLExtractor) extractXLSX(path string) (*ExtractedContent, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return &ExtractedContent{Warnings: []string{WarnMetadataOnlyFallback}}, nil
	}
	return &ExtractedContent{Text: strings.TrimSpace(b.String())}, nil
}

func docxPartMatches(name string) bool {
	return name == "word/document.xml"
}

func pptxPartMatches(name string) bool {
	return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
}

// extractZipParts opens path as a ZIP archive, SAX-parses every part
// whose name matches, and emits text for <t>/<*:t> elements, inserting
// a newline at each paragraph (<w:p>) or slide-text-body boundary.
func (e *OpenXMLExtractor) extractZipParts(path string, match func(string) bool) (*ExtractedContent, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if match(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		rc, err := findZipFile(r, name)
		if err != nil {
			continue
		}
		text, err := extractTextFromPartXML(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}

	if b.Len() == 0 {
		return &ExtractedContent{Warnings: []string{WarnMetadataOnlyFallback}}, nil
	}
	return &ExtractedContent{Text: strings.TrimSpace(b.String())}, nil
}

func findZipFile(r *zip.ReadCloser, name string) (io.ReadCloser, error) {
	for _, f := range r.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("part %q not found", name)
}

// extractTextFromPartXML streams an OOXML part, emitting text runs
// from <t>/<*:t> elements and a newline at each paragraph/row boundary
// (<w:p>, <a:p>, <p>) so the output reads one line per paragraph.
func extractTextFromPartXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	inTextElement := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return b.String(), err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isParagraphBoundary(t.Name.Local) {
				b.WriteString("\n")
			}
			if t.Name.Local == "t" {
				inTextElement = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inTextElement = false
			}
		case xml.CharData:
			if inTextElement {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func isParagraphBoundary(local string) bool {
	switch local {
	case "p":
		return true
	}
	return false
}
