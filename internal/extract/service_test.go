package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyOutcome_EmptyBodyIsUnsupported(t *testing.T) {
	assert.Equal(t, OutcomeUnsupported, classifyOutcome(ExtractedContent{Text: "   "}))
	assert.Equal(t, OutcomeUnsupported, classifyOutcome(ExtractedContent{
		Text:     "",
		Warnings: []string{WarnMetadataOnlyFallback},
	}))
}

func TestClassifyOutcome_NoWarningsIsSuccess(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, classifyOutcome(ExtractedContent{Text: "hello"}))
}

func TestClassifyOutcome_StillSuccessWarningIsSuccess(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, classifyOutcome(ExtractedContent{
		Text:     "hello",
		Warnings: []string{WarnTextTruncatedLargeFile},
	}))
}

func TestClassifyOutcome_OtherWarningIsPartial(t *testing.T) {
	assert.Equal(t, OutcomePartial, classifyOutcome(ExtractedContent{
		Text:     "hello",
		Warnings: []string{WarnOCRBudgetExhausted},
	}))
}

func TestSearchableBody_TruncatesAndAppendsMetadataBlock(t *testing.T) {
	svc := &ExtractionService{budget: Budget{MaxExtractedCharacters: 1000}}
	body := svc.searchableBody(ExtractedContent{
		Text:     "  line one  \n\n  line two  ",
		Metadata: map[string]string{"b": "2", "a": "1"},
	})
	assert.Contains(t, body, "line one")
	assert.Contains(t, body, "line two")
	assert.Contains(t, body, "a: 1\nb: 2")
}

func TestSearchableBody_RespectsCharacterCap(t *testing.T) {
	svc := &ExtractionService{budget: Budget{MaxExtractedCharacters: 10}}
	body := svc.searchableBody(ExtractedContent{Text: "0123456789abcdef"})
	assert.LessOrEqual(t, len(body), 10)
}

type slowExtractor struct{ delay time.Duration }

func (s slowExtractor) CanHandle(path, ext string) bool { return true }
func (s slowExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	select {
	case <-time.After(s.delay):
		return &ExtractedContent{Text: "too slow to matter"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type instantExtractor struct{ content *ExtractedContent }

func (s instantExtractor) CanHandle(path, ext string) bool { return true }
func (s instantExtractor) Extract(ctx context.Context, path string, budget Budget) (*ExtractedContent, error) {
	return s.content, nil
}

func TestExtractionService_Extract_TimesOutSlowExtractor(t *testing.T) {
	svc := &ExtractionService{
		budget: Budget{PerFileTimeout: 0.02, MaxExtractedCharacters: 1000},
		chain:  []Extractor{slowExtractor{delay: time.Second}},
	}
	result := svc.Extract(context.Background(), "anything.txt")
	require.True(t, result.WasTimeout)
	assert.Equal(t, OutcomeUnsupported, result.Outcome)
}

func TestExtractionService_Extract_ReturnsSuccessForFastExtractor(t *testing.T) {
	svc := &ExtractionService{
		budget: Budget{PerFileTimeout: 1, MaxExtractedCharacters: 1000},
		chain:  []Extractor{instantExtractor{content: &ExtractedContent{Text: "quick result"}}},
	}
	result := svc.Extract(context.Background(), "anything.txt")
	assert.False(t, result.WasTimeout)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Contains(t, result.Content.Text, "quick result")
}

func TestExtractionService_Extract_NoExtractorClaimsPathIsUnsupported(t *testing.T) {
	svc := &ExtractionService{
		budget: Budget{PerFileTimeout: 1, MaxExtractedCharacters: 1000},
		chain:  []Extractor{},
	}
	result := svc.Extract(context.Background(), "anything.bin")
	assert.Equal(t, OutcomeUnsupported, result.Outcome)
}
