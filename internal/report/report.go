// Package report renders markdown reports from a graph snapshot.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
	"github.com/phobologic/traceguide/internal/snapshot"
)

// Report file names inside the reports directory.
const (
	MatrixFile  = "traceability-matrix.md"
	OrphansFile = "orphans.md"
)

const (
	sentinelStart = "<!-- traceguide:start -->"
	sentinelEnd   = "<!-- traceguide:end -->"
)

const emptyScaffold = "_No governed spec items found (empty scaffold mode)._"

var groupTitles = map[ident.Subtype]string{
	ident.Functional:    "Functional Requirements",
	ident.NonFunctional: "Non-Functional Requirements",
	ident.Other:         "Other Requirements",
}

// column groups the links of one requirement in the matrix.
type column struct {
	title string
	match func(string) bool
}

func classIs(c ident.Class) func(string) bool {
	return func(id string) bool { return ident.ClassOf(id) == c }
}

func designKind(k string) func(string) bool {
	return func(id string) bool { return ident.DesignKind(id) == k }
}

var columns = []column{
	{"ADRs", classIs(ident.Decision)},
	{"Architecture Components", classIs(ident.Component)},
	{"Design Components", designKind("C")},
	{"Design Interfaces", designKind("I")},
	{"Design Data Models", designKind("D")},
	{"Scenarios", classIs(ident.Scenario)},
	{"Tests", classIs(ident.Test)},
	{"Source Files", func(id string) bool { return strings.HasPrefix(id, model.SourcePrefix) }},
}

// Links returns every artifact linked to requirement r: non-requirement
// forward and reverse references plus direct and propagated source files.
func Links(g *model.Graph, r string) []string {
	set := make(map[string]bool)
	if d, ok := g.Metrics[model.MetricRequirement].Details[r]; ok {
		for _, id := range d.ForwardRefs {
			set[id] = true
		}
		for _, id := range d.ReverseRefs {
			set[id] = true
		}
	}
	if d, ok := g.Metrics[model.MetricSource].Details[r]; ok {
		for _, id := range d.ReverseRefs {
			set[id] = true
		}
		for _, id := range d.PropagatedRefs {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Requirements returns the requirement identifiers of g, sorted.
func Requirements(g *model.Graph) []string {
	var reqs []string
	for _, it := range g.Items {
		if ident.ClassOf(it.ID) == ident.Requirement {
			reqs = append(reqs, it.ID)
		}
	}
	sort.Strings(reqs)
	return reqs
}

// Matrix renders the categorized traceability matrix.
func Matrix(g *model.Graph) string {
	if len(g.Items) == 0 {
		return "# Traceability Matrix\n\n" + emptyScaffold + "\n"
	}

	overall := g.Metrics[model.MetricRequirement]
	fn := overall.Groups[string(ident.Functional)]
	nf := overall.Groups[string(ident.NonFunctional)]

	var b strings.Builder
	b.WriteString("# Traceability Matrix (Categorized)\n\n## Summary\n\n")
	fmt.Fprintf(&b, "- Requirements total: %d\n", overall.Total)
	fmt.Fprintf(&b, "- Requirements linked (>=1 element): %d\n", overall.WithLinks)
	fmt.Fprintf(&b, "- Overall Coverage: %.1f%%\n", overall.CoveragePct)
	fmt.Fprintf(&b, "- Functional Coverage: %d/%d (%.1f%%)\n", fn.WithLinks, fn.Total, fn.CoveragePct)
	fmt.Fprintf(&b, "- Non-Functional Coverage: %d/%d (%.1f%%)\n", nf.WithLinks, nf.Total, nf.CoveragePct)
	b.WriteString(`
### Legend
- ADR: Architecture Decision Record
- ARC-C: Architecture Components
- DES-C/I/D: Design Component / Interface / Data Model
- QA-SC: Quality Scenario
- TEST: Verification and Validation Spec
- SRC: Source file referencing the requirement or a linked design element

`)

	grouped := make(map[ident.Subtype][]string)
	for _, r := range Requirements(g) {
		st := ident.RequirementSubtype(r)
		grouped[st] = append(grouped[st], r)
	}

	for _, st := range ident.Subtypes() {
		reqs := grouped[st]
		if len(reqs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", groupTitles[st])

		header := []string{"Requirement"}
		for _, c := range columns {
			header = append(header, c.title)
		}
		header = append(header, "All Linked")
		b.WriteString("| " + strings.Join(header, " | ") + " |\n")
		b.WriteString(strings.Repeat("|---", len(header)) + "|\n")

		for _, r := range reqs {
			links := Links(g, r)
			row := []string{r}
			for _, c := range columns {
				var cell []string
				for _, l := range links {
					if c.match(l) {
						cell = append(cell, l)
					}
				}
				row = append(row, strings.Join(cell, ", "))
			}
			all := strings.Join(links, ", ")
			if all == "" {
				all = "(none)"
			}
			row = append(row, all)
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Orphans renders the orphan analysis.
func Orphans(g *model.Graph) string {
	if len(g.Items) == 0 {
		return "# Orphan Analysis\n\n" + emptyScaffold + "\n"
	}

	sections := []struct {
		title string
		ids   []string
	}{
		{"Requirements with no links", g.Orphans.RequirementsNoLinks},
		{"Scenarios with no requirement", g.Orphans.ScenariosNoReq},
		{"Architecture components with no requirement", g.Orphans.ComponentsNoReq},
		{"ADRs with no requirement", g.Orphans.DecisionsNoReq},
		{"Tests with no requirement", g.Orphans.TestsNoReq},
	}

	var b strings.Builder
	b.WriteString("# Orphan Analysis\n\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n", s.title)
		if len(s.ids) == 0 {
			b.WriteString("- None\n")
		}
		for _, id := range s.ids {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Write renders both reports into dir and returns the written paths.
func Write(dir string, g *model.Graph) ([]string, error) {
	files := []struct {
		name    string
		content string
	}{
		{MatrixFile, Matrix(g)},
		{OrphansFile, Orphans(g)},
	}
	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := snapshot.WriteFileAtomic(path, []byte(f.content)); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Summary returns the sentinel-wrapped coverage summary block.
func Summary(g *model.Graph) string {
	var b strings.Builder
	b.WriteString("## Traceability Coverage\n\n")
	b.WriteString("| Metric | Linked | Total | Coverage |\n|---|---|---|---|\n")
	rows := []struct {
		label string
		key   string
	}{
		{"Requirements (any link)", model.MetricRequirement},
		{"Requirement to design", model.MetricDesign},
		{"Requirement to ADR", model.MetricDecision},
		{"Requirement to scenario", model.MetricScenario},
		{"Requirement to test", model.MetricTest},
		{"Requirement to source", model.MetricSource},
	}
	for _, r := range rows {
		m, ok := g.Metrics[r.key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% |\n", r.label, m.WithLinks, m.Total, m.CoveragePct)
	}
	fmt.Fprintf(&b, "\nOrphans: %d requirements, %d scenarios, %d components, %d ADRs, %d tests.",
		len(g.Orphans.RequirementsNoLinks), len(g.Orphans.ScenariosNoReq), len(g.Orphans.ComponentsNoReq),
		len(g.Orphans.DecisionsNoReq), len(g.Orphans.TestsNoReq))

	return sentinelStart + "\n" + b.String() + "\n" + sentinelEnd
}

// ApplySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func ApplySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}

// UpdateSummaryFile writes or refreshes the summary block in a markdown
// file, creating the file if needed.
func UpdateSummaryFile(path string, g *model.Graph) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated := ApplySection(string(existing), Summary(g))
	return snapshot.WriteFileAtomic(path, []byte(updated))
}
