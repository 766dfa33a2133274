package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/johnbean393/hivecrew-retrieval/internal/config"
)

func testPolicy(t *testing.T, root string) *IndexingPolicy {
	t.Helper()
	cfg, err := config.PolicyPreset(config.ProfileDeveloper)
	require.NoError(t, err)
	return New(cfg, []string{root})
}

func TestEvaluateOutsideAllowlistSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/etc/passwd", 100, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
	require.Equal(t, "outside_allowlist", d.Reason)
}

func TestEvaluateExcludedPathSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/project/node_modules/pkg/index.js", 10, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
	require.Equal(t, "excluded_path", d.Reason)
}

func TestEvaluateUnsupportedExtensionSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/archive.zip", 10, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
	require.Equal(t, "unsupported_file_type", d.Reason)
}

func TestEvaluateNoExtensionSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/README", 10, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
}

func TestEvaluateHardSizeCapSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/plan.txt", 999_999_999, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
	require.Equal(t, "hard_size_cap", d.Reason)
}

func TestEvaluateFirstPassCapDeferred(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/plan.txt", 6*1024*1024, time.Now())
	require.Equal(t, DecisionDeferred, d.Kind)
	require.Equal(t, "deferred_large_file", d.Reason)
}

func TestEvaluateGeneratedFileSkipped(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/bundle.js", 10, time.Now())
	require.Equal(t, DecisionSkip, d.Kind)
	require.Equal(t, "generated_or_minified", d.Reason)
}

func TestEvaluateRecentFileIsHot(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/plan.txt", 10, time.Now())
	require.Equal(t, DecisionIndex, d.Kind)
	require.Equal(t, PartitionHot, d.Partition)
}

func TestEvaluateOldFileIsWarm(t *testing.T) {
	p := testPolicy(t, "/root")
	d := p.Evaluate("/root/notes/plan.txt", 10, time.Now().Add(-60*24*time.Hour))
	require.Equal(t, DecisionIndex, d.Kind)
	require.Equal(t, PartitionWarm, d.Partition)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	p := testPolicy(t, "/root")
	modified := time.Now().Add(-10 * time.Hour)
	a := p.Evaluate("/root/notes/plan.txt", 1234, modified)
	b := p.Evaluate("/root/notes/plan.txt", 1234, modified)
	require.Equal(t, a, b)
}

func TestPartitionForAge(t *testing.T) {
	require.Equal(t, PartitionHot, PartitionForAge(time.Now()))
	require.Equal(t, PartitionWarm, PartitionForAge(time.Now().Add(-60*24*time.Hour)))
	require.Equal(t, PartitionCold, PartitionForAge(time.Now().Add(-365*24*time.Hour)))
}
