package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// PolicyConfig is the tunable surface of IndexingPolicy.
type PolicyConfig struct {
	AllowlistRoots                []string `yaml:"allowlistRoots"`
	ExcludeTokens                 []string `yaml:"excludeTokens"`
	AllowedExtensions             []string `yaml:"allowedExtensions"`
	NonSearchableExtensions       []string `yaml:"nonSearchableExtensions"`
	SkipUnknownMime               bool     `yaml:"skipUnknownMime"`
	FirstPassFileSizeCapBytes     int64    `yaml:"firstPassFileSizeCapBytes"`
	HardFileSizeCapBytes          int64    `yaml:"hardFileSizeCapBytes"`
	MaxChunksPerDocument           int      `yaml:"maxChunksPerDocument"`
	MaxExtractedCharactersPerDoc   int      `yaml:"maxExtractedCharactersPerDocument"`
	MaxPDFPagesToOCR               int      `yaml:"maxPDFPagesToOCR"`
	MaxImagePixelCountForOCR        int64    `yaml:"maxImagePixelCountForOCR"`
	MaxImageDimensionForOCR         int      `yaml:"maxImageDimensionForOCR"`
	MaxExtractionSecondsPerFile     float64  `yaml:"maxExtractionSecondsPerFile"`
	Stage1RecentCutoffDays          int      `yaml:"stage1RecentCutoffDays"`
	QuietWindowSeconds              float64  `yaml:"quietWindowSeconds"`
}

//go:embed presets/developer.yaml
var developerPresetYAML []byte

//go:embed presets/personal.yaml
var personalPresetYAML []byte

//go:embed presets/balanced.yaml
var balancedPresetYAML []byte

// PolicyPreset loads the named preset's PolicyConfig.
func PolicyPreset(profile Profile) (PolicyConfig, error) {
	var raw []byte
	switch profile {
	case ProfileDeveloper:
		raw = developerPresetYAML
	case ProfilePersonal:
		raw = personalPresetYAML
	case ProfileBalanced, "":
		raw = balancedPresetYAML
	default:
		return PolicyConfig{}, daemonerr.Config(fmt.Sprintf("unknown indexing profile %q", profile), nil)
	}

	var pc PolicyConfig
	if err := yaml.Unmarshal(raw, &pc); err != nil {
		return PolicyConfig{}, daemonerr.Config("failed to parse policy preset", err)
	}
	return pc, nil
}
