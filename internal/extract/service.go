package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ExtractionService dispatches to the first Extractor in chain whose
// CanHandle returns true, runs it under a per-file wall-clock timeout,
// and normalizes/classifies the result.
type ExtractionService struct {
	chain  []Extractor
	budget Budget
}

// NewExtractionService builds the default ordered chain: plain text →
// PDF → image OCR → rich text/HTML → Office OpenXML → metadata
// fallback. ocr is injected so callers can swap in a real OCR binding
// without touching dispatch order.
func NewExtractionService(budget Budget, ocr OCREngine) *ExtractionService {
	if ocr == nil {
		ocr = NewStubOCREngine()
	}
	return &ExtractionService{
		budget: budget,
		chain: []Extractor{
			&PlainTextExtractor{},
			&PDFExtractor{OCR: ocr},
			&ImageOCRExtractor{OCR: ocr},
			&RichTextExtractor{},
			&OpenXMLExtractor{},
			&MetadataFallbackExtractor{},
		},
	}
}

// Extract selects an extractor for path and runs it with the one-shot
// timeout gate: whichever of the extractor's own completion or the
// wall-clock deadline (policy.maxExtractionSecondsPerFile) finishes
// first decides the result, and the extractor goroutine — if it is
// still running — is left to complete and discard its result (the
// buffered result channel prevents it from blocking forever).
func (s *ExtractionService) Extract(ctx context.Context, path string) *Result {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(path))

	var chosen Extractor
	for _, e := range s.chain {
		if e.CanHandle(path, ext) {
			chosen = e
			break
		}
	}
	if chosen == nil {
		return &Result{
			Outcome: OutcomeUnsupported,
			Detail:  fmt.Sprintf("no extractor handles %q", ext),
			Elapsed: time.Since(start).Seconds(),
		}
	}

	timeout := time.Duration(s.budget.PerFileTimeout * float64(time.Second))
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		content *ExtractedContent
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		content, err := chosen.Extract(runCtx, path, s.budget)
		done <- outcome{content: content, err: err}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(start).Seconds()
		if res.err != nil {
			return &Result{Outcome: OutcomeFailed, Detail: res.err.Error(), Elapsed: elapsed}
		}
		if res.content == nil {
			return &Result{
				Outcome: OutcomeUnsupported,
				Detail:  fmt.Sprintf("no content extracted for %q", ext),
				Elapsed: elapsed,
			}
		}
		return s.finish(*res.content, elapsed, false)
	case <-runCtx.Done():
		elapsed := time.Since(start).Seconds()
		content := ExtractedContent{Warnings: []string{WarnExtractionTimedOut}}
		return s.finish(content, elapsed, true)
	}
}

// finish normalizes the searchable body and classifies the outcome.
func (s *ExtractionService) finish(content ExtractedContent, elapsed float64, timedOut bool) *Result {
	content.Text = s.searchableBody(content)
	return &Result{
		Outcome:    classifyOutcome(content),
		Content:    content,
		Elapsed:    elapsed,
		WasTimeout: timedOut,
	}
}

// searchableBody normalizes line endings, trims per-line whitespace,
// appends a bounded metadata block, and truncates to
// maxExtractedCharactersPerDocument.
func (s *ExtractionService) searchableBody(content ExtractedContent) string {
	normalized := normalizeLines(content.Text)

	var b strings.Builder
	b.WriteString(normalized)

	if len(content.Metadata) > 0 {
		b.WriteString("\n\n---\n")
		for _, k := range sortedKeys(content.Metadata) {
			fmt.Fprintf(&b, "%s: %s\n", k, content.Metadata[k])
		}
	}

	out := b.String()
	maxChars := s.budget.MaxExtractedCharacters
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
		content.Warnings = appendUnique(content.Warnings, WarnTextTruncatedLargeFile)
	}
	return out
}

func normalizeLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(line, " \t"), " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func appendUnique(warnings []string, w string) []string {
	for _, existing := range warnings {
		if existing == w {
			return warnings
		}
	}
	return append(warnings, w)
}

// classifyOutcome applies the warning-set rules that decide between
// complete, partial, and empty outcomes.
func classifyOutcome(content ExtractedContent) Outcome {
	empty := strings.TrimSpace(content.Text) == ""

	if empty {
		for _, w := range content.Warnings {
			if _, ok := unsupportedWithoutSourceText[w]; ok {
				return OutcomeUnsupported
			}
		}
		return OutcomeUnsupported
	}

	if len(content.Warnings) == 0 {
		return OutcomeSuccess
	}

	allStillSuccess := true
	for _, w := range content.Warnings {
		if _, ok := stillSuccess[w]; !ok {
			allStillSuccess = false
			break
		}
	}
	if allStillSuccess {
		return OutcomeSuccess
	}
	return OutcomePartial
}
