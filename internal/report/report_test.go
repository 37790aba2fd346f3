package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/traceguide/internal/graph"
	"github.com/phobologic/traceguide/internal/model"
)

func item(id string, refs ...string) model.Item {
	if refs == nil {
		refs = []string{}
	}
	return model.Item{ID: id, Title: id, Source: "x.md", References: refs}
}

func sample() *model.Graph {
	return graph.Compute(&model.Index{
		Items: []model.Item{
			item("REQ-F-001", "ADR-001", "DES-C-001"),
			item("REQ-NF-001"),
			item("REQ-X-001", "QA-SC-001"),
			item("ADR-001"),
			item("ARC-C-009"),
			item("DES-C-001"),
			item("QA-SC-001"),
			item("TEST-LOGIN-001", "REQ-F-001"),
		},
		Sources: []model.SourceArtifact{
			{Path: "src/auth.cpp", References: []string{"DES-C-001"}},
			{Path: "src/main.go", References: []string{"REQ-F-001"}},
		},
	})
}

func TestLinksIncludesPropagatedSources(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"ADR-001", "DES-C-001", "SRC:src/auth.cpp", "SRC:src/main.go", "TEST-LOGIN-001"},
		Links(sample(), "REQ-F-001"))
	assert.Empty(t, Links(sample(), "REQ-NF-001"))
}

func TestMatrix(t *testing.T) {
	t.Parallel()

	out := Matrix(sample())

	assert.True(t, strings.HasPrefix(out, "# Traceability Matrix (Categorized)\n"))
	assert.Contains(t, out, "- Requirements total: 3\n")
	assert.Contains(t, out, "- Functional Coverage: 1/1 (100.0%)\n")
	assert.Contains(t, out, "- Non-Functional Coverage: 0/1 (0.0%)\n")
	assert.Contains(t, out, "| REQ-F-001 | ADR-001 |  | DES-C-001 |  |  |  | TEST-LOGIN-001 | SRC:src/auth.cpp, SRC:src/main.go |")
	assert.Contains(t, out, "| REQ-NF-001 |  |  |  |  |  |  |  |  | (none) |")

	// Groups appear in a fixed order.
	fn := strings.Index(out, "## Functional Requirements")
	nf := strings.Index(out, "## Non-Functional Requirements")
	other := strings.Index(out, "## Other Requirements")
	require.True(t, fn > 0 && nf > fn && other > nf, "group order")

	// Header and separator agree on column count.
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| Requirement |") {
			assert.Equal(t, strings.Count(line, "|"), 11)
		}
		if strings.HasPrefix(line, "|---") {
			assert.Equal(t, strings.Count(line, "|"), 11)
		}
	}
}

func TestOrphans(t *testing.T) {
	t.Parallel()

	out := Orphans(sample())
	assert.Contains(t, out, "## Requirements with no links\n- REQ-NF-001\n")
	assert.Contains(t, out, "## Architecture components with no requirement\n- ARC-C-009\n")
	assert.Contains(t, out, "## Tests with no requirement\n- None\n")
}

func TestEmptyScaffold(t *testing.T) {
	t.Parallel()

	g := graph.Compute(&model.Index{Items: []model.Item{}, DuplicateIDs: []string{}})
	assert.Equal(t, "# Traceability Matrix\n\n_No governed spec items found (empty scaffold mode)._\n", Matrix(g))
	assert.Equal(t, "# Orphan Analysis\n\n_No governed spec items found (empty scaffold mode)._\n", Orphans(g))
}

func TestWrite(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := Write(dir, sample())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dir, MatrixFile))
	require.NoError(t, err)
	assert.Equal(t, Matrix(sample()), string(data))
}

func TestApplySection(t *testing.T) {
	t.Parallel()

	section := sentinelStart + "\nnew\n" + sentinelEnd

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "\n" + section + "\n"},
		{"append", "# Title", "# Title\n\n" + section + "\n"},
		{
			"replace",
			"# Title\n\n" + sentinelStart + "\nold\n" + sentinelEnd + "\n\nfooter\n",
			"# Title\n\n" + section + "\n\nfooter\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ApplySection(tt.content, section))
		})
	}
}

func TestUpdateSummaryFileIsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(path, []byte("# Project\n"), 0o644))

	require.NoError(t, UpdateSummaryFile(path, sample()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, UpdateSummaryFile(path, sample()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(first), "| Requirements (any link) | 2 | 3 | 66.7% |")
	assert.True(t, strings.HasPrefix(string(first), "# Project\n\n"+sentinelStart))
}
