// Package validate checks graph coverage metrics against minimum
// thresholds.
package validate

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
)

// Exit codes, one per threshold category.
const (
	ExitOK       = 0
	ExitOverall  = 2
	ExitDecision = 3
	ExitScenario = 4
	ExitTest     = 5
)

// Category is one checked dimension.
type Category struct {
	Name     string
	Label    string
	Aliases  []string // metric keys, preferred first
	ExitCode int
	min      func(config.Thresholds) float64
}

// Categories are checked in this order; the first failure sets the exit code.
var Categories = []Category{
	{"overall", "Requirements overall coverage", []string{model.MetricRequirement, "REQ", "REQ-"}, ExitOverall,
		func(t config.Thresholds) float64 { return t.Overall }},
	{"decision", "ADR linkage coverage", []string{model.MetricDecision, "req_to_adr"}, ExitDecision,
		func(t config.Thresholds) float64 { return t.Decision }},
	{"scenario", "Scenario linkage coverage", []string{model.MetricScenario, "req_to_scenario"}, ExitScenario,
		func(t config.Thresholds) float64 { return t.Scenario }},
	{"test", "Test linkage coverage", []string{model.MetricTest, "req_to_test"}, ExitTest,
		func(t config.Thresholds) float64 { return t.Test }},
}

// Check is the outcome for one category.
type Check struct {
	Category string
	Label    string
	Metric   string // the key that was found, "" when absent
	Present  bool
	Actual   float64
	Min      float64
	Passed   bool
	ExitCode int
}

// Gaps is the diagnostic breakdown printed on failure.
type Gaps struct {
	Unlinked        []string
	Missing         map[string][]string // category name to requirements lacking that link
	OrphanScenarios []string
	OrphanTests     []string
}

// Result is the outcome of a validation run.
type Result struct {
	Checks []Check
	// Failures lists every failed category, in check order.
	Failures []string
	// ExitCode belongs to the first failed category, or ExitOK.
	ExitCode   int
	Advisories []string
	Gaps       Gaps
}

// Passed reports whether every present metric met its threshold.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Validate compares g's metrics with t. Absent metrics produce advisories,
// not failures. Percentages are compared unrounded; equality passes.
func Validate(g *model.Graph, t config.Thresholds) *Result {
	r := &Result{}
	for _, cat := range Categories {
		c := Check{Category: cat.Name, Label: cat.Label, Min: cat.min(t), ExitCode: cat.ExitCode}
		key, m, ok := lookup(g.Metrics, cat.Aliases)
		if !ok {
			r.Advisories = append(r.Advisories, fmt.Sprintf("no %s metric present (looked for %s)", cat.Name, strings.Join(cat.Aliases, ", ")))
			r.Checks = append(r.Checks, c)
			continue
		}
		c.Metric, c.Present, c.Actual = key, true, m.CoveragePct
		c.Passed = true
		if m.CoveragePct < c.Min {
			c.Passed = false
			r.Failures = append(r.Failures, cat.Name)
			if r.ExitCode == ExitOK {
				r.ExitCode = cat.ExitCode
			}
		}
		r.Checks = append(r.Checks, c)
	}
	r.Gaps = gaps(g)
	return r
}

func lookup(metrics map[string]model.Coverage, aliases []string) (string, model.Coverage, bool) {
	for _, k := range aliases {
		if m, ok := metrics[k]; ok {
			return k, m, true
		}
	}
	return "", model.Coverage{}, false
}

func gaps(g *model.Graph) Gaps {
	gp := Gaps{Missing: make(map[string][]string)}

	if overall, ok := g.Metrics[model.MetricRequirement]; ok && overall.Details != nil {
		gp.Unlinked = missing(overall.Details)
	} else {
		gp.Unlinked = append([]string(nil), g.Orphans.RequirementsNoLinks...)
	}

	referenced := make(map[string]bool)
	for _, cat := range Categories[1:] {
		_, m, ok := lookup(g.Metrics, cat.Aliases)
		if !ok {
			continue
		}
		gp.Missing[cat.Name] = missing(m.Details)
		if cat.Name == "scenario" || cat.Name == "test" {
			for _, d := range m.Details {
				for _, id := range d.ForwardRefs {
					referenced[id] = true
				}
				for _, id := range d.ReverseRefs {
					referenced[id] = true
				}
			}
		}
	}

	for _, it := range g.Items {
		if referenced[it.ID] {
			continue
		}
		switch ident.ClassOf(it.ID) {
		case ident.Scenario:
			gp.OrphanScenarios = append(gp.OrphanScenarios, it.ID)
		case ident.Test:
			gp.OrphanTests = append(gp.OrphanTests, it.ID)
		}
	}
	sort.Strings(gp.OrphanScenarios)
	sort.Strings(gp.OrphanTests)
	return gp
}

func missing(details map[string]model.LinkDetail) []string {
	var out []string
	for id, d := range details {
		if !d.Linked() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// WriteReport prints one line per check and, when any check failed, the
// gap breakdown.
func WriteReport(w io.Writer, r *Result) error {
	var b strings.Builder
	failed := make(map[string]bool, len(r.Failures))
	for _, f := range r.Failures {
		failed[f] = true
	}

	for _, c := range r.Checks {
		switch {
		case !c.Present:
			fmt.Fprintf(&b, "SKIP %s: metric not present\n", c.Label)
		case c.Passed:
			fmt.Fprintf(&b, "ok   %s %.2f%% >= %.2f%%\n", c.Label, c.Actual, c.Min)
		default:
			fmt.Fprintf(&b, "FAIL %s %.2f%% < %.2f%%\n", c.Label, c.Actual, c.Min)
		}
	}

	if !r.Passed() {
		b.WriteString("\n--- Detailed coverage gaps ---\n")
		if len(r.Gaps.Unlinked) > 0 {
			fmt.Fprintf(&b, "Unlinked requirements (no ADR/DES/QA/TEST links): %d\n", len(r.Gaps.Unlinked))
			writeList(&b, r.Gaps.Unlinked)
		} else {
			b.WriteString("All requirements have at least one non-requirement link.\n")
		}
		if failed["decision"] {
			fmt.Fprintf(&b, "Requirements missing ADR linkage: %d\n", len(r.Gaps.Missing["decision"]))
			writeList(&b, r.Gaps.Missing["decision"])
		}
		if failed["scenario"] {
			fmt.Fprintf(&b, "Requirements missing Scenario (QA) linkage: %d\n", len(r.Gaps.Missing["scenario"]))
			writeList(&b, r.Gaps.Missing["scenario"])
			if len(r.Gaps.OrphanScenarios) > 0 {
				fmt.Fprintf(&b, "Available QA scenarios with no links: %d\n", len(r.Gaps.OrphanScenarios))
				writeList(&b, r.Gaps.OrphanScenarios)
			}
		}
		if failed["test"] {
			fmt.Fprintf(&b, "Requirements missing Test linkage: %d\n", len(r.Gaps.Missing["test"]))
			writeList(&b, r.Gaps.Missing["test"])
			if len(r.Gaps.OrphanTests) > 0 {
				fmt.Fprintf(&b, "Tests present but not referenced by any requirement: %d\n", len(r.Gaps.OrphanTests))
				writeList(&b, r.Gaps.OrphanTests)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, ids []string) {
	if len(ids) > 0 {
		b.WriteString("  " + strings.Join(ids, ", ") + "\n")
	}
}
