// Package model defines core data structures for traceguide.
package model

// Line is one numbered line of text (1-based).
type Line struct {
	Number int
	Text   string
}

// Item is the canonical record for one identifier definition.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Source      string   `json:"source"`
	Line        int      `json:"line,omitempty"`
	References  []string `json:"references"`
	Fingerprint string   `json:"fingerprint"`
}

// SourceArtifact is a source file and the identifiers its text references.
// Source artifacts are not items; they only take part in design propagation.
type SourceArtifact struct {
	Path       string   `json:"path"`
	References []string `json:"references"`
}

// SourcePrefix names a source artifact inside link sets ("SRC:lib/a.cpp").
const SourcePrefix = "SRC:"

// Index is the snapshot written by the index builder.
type Index struct {
	Items           []Item           `json:"items"`
	DuplicateIDs    []string         `json:"duplicateIds"`
	DuplicateCounts map[string]int   `json:"duplicateCounts,omitempty"`
	Sources         []SourceArtifact `json:"sources,omitempty"`
	IgnoredPatterns []string         `json:"ignoredPatterns,omitempty"`
}

// LinkDetail records how one requirement is linked to one target category.
type LinkDetail struct {
	ForwardRefs    []string `json:"forward_refs"`
	ReverseRefs    []string `json:"reverse_refs"`
	PropagatedRefs []string `json:"propagated_refs,omitempty"`
}

// Linked reports whether any link was found.
func (d LinkDetail) Linked() bool {
	return len(d.ForwardRefs) > 0 || len(d.ReverseRefs) > 0 || len(d.PropagatedRefs) > 0
}

// GroupCoverage is a coverage figure for one requirement subtype.
type GroupCoverage struct {
	Total       int     `json:"total"`
	WithLinks   int     `json:"with_links"`
	CoveragePct float64 `json:"coverage_pct"`
}

// Coverage is one metric of the graph snapshot. CoveragePct is unrounded.
type Coverage struct {
	Total       int                      `json:"total"`
	WithLinks   int                      `json:"with_links"`
	CoveragePct float64                  `json:"coverage_pct"`
	Definition  string                   `json:"definition,omitempty"`
	Inference   string                   `json:"inference,omitempty"`
	Details     map[string]LinkDetail    `json:"details,omitempty"`
	Groups      map[string]GroupCoverage `json:"groups,omitempty"`
}

// Metric keys in the graph snapshot.
const (
	MetricRequirement = "requirement"
	MetricDesign      = "requirement_to_design"
	MetricDecision    = "requirement_to_ADR"
	MetricScenario    = "requirement_to_scenario"
	MetricTest        = "requirement_to_test"
	MetricSource      = "requirement_to_source"
	MetricRawReq      = "requirement_raw"
)

// Orphans lists artifacts no requirement links to or from.
type Orphans struct {
	RequirementsNoLinks []string `json:"requirements_no_links"`
	ScenariosNoReq      []string `json:"scenarios_no_req"`
	ComponentsNoReq     []string `json:"components_no_req"`
	DecisionsNoReq      []string `json:"adrs_no_req"`
	TestsNoReq          []string `json:"tests_no_req"`
}

// Graph is the snapshot written by the graph/metrics engine.
type Graph struct {
	Items    []Item              `json:"items"`
	Forward  map[string][]string `json:"forward"`
	Backward map[string][]string `json:"backward"`
	Metrics  map[string]Coverage `json:"metrics"`
	Orphans  Orphans             `json:"orphans"`
}

// Percent returns part/total*100, or 100 for an empty population.
func Percent(part, total int) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(part) / float64(total) * 100
}
