package extract

import "github.com/johnbean393/hivecrew-retrieval/internal/config"

// BudgetFromPolicyConfig adapts the policy's tunable surface into the
// subset ExtractionService needs.
func BudgetFromPolicyConfig(cfg config.PolicyConfig) Budget {
	return Budget{
		MaxExtractedCharacters: cfg.MaxExtractedCharactersPerDoc,
		MaxPDFPagesToOCR:       cfg.MaxPDFPagesToOCR,
		MaxImagePixelCount:     cfg.MaxImagePixelCountForOCR,
		MaxImageDimension:      cfg.MaxImageDimensionForOCR,
		PerFileTimeout:         cfg.MaxExtractionSecondsPerFile,
	}
}
