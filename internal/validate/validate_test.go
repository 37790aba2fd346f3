package validate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/graph"
	"github.com/phobologic/traceguide/internal/model"
)

func metrics(overall, adr, scenario, test float64) *model.Graph {
	return &model.Graph{Metrics: map[string]model.Coverage{
		model.MetricRequirement: {CoveragePct: overall},
		model.MetricDecision:    {CoveragePct: adr},
		model.MetricScenario:    {CoveragePct: scenario},
		model.MetricTest:        {CoveragePct: test},
	}}
}

func TestBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	r := Validate(metrics(80.0, 70.0, 60.0, 40.0), config.Default().Thresholds)
	assert.True(t, r.Passed())
	assert.Equal(t, ExitOK, r.ExitCode)
	assert.Empty(t, r.Advisories)
}

func TestFirstFailureSetsExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		g        *model.Graph
		code     int
		failures []string
	}{
		{"overall", metrics(79.99, 100, 100, 100), ExitOverall, []string{"overall"}},
		{"decision", metrics(100, 69.9, 100, 100), ExitDecision, []string{"decision"}},
		{"scenario and test", metrics(100, 100, 10, 0), ExitScenario, []string{"scenario", "test"}},
		{"all", metrics(0, 0, 0, 0), ExitOverall, []string{"overall", "decision", "scenario", "test"}},
		{"test", metrics(100, 100, 100, 39), ExitTest, []string{"test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := Validate(tt.g, config.Default().Thresholds)
			assert.False(t, r.Passed())
			assert.Equal(t, tt.code, r.ExitCode)
			assert.Equal(t, tt.failures, r.Failures)
		})
	}
}

func TestMissingMetricIsAdvisory(t *testing.T) {
	t.Parallel()

	g := &model.Graph{Metrics: map[string]model.Coverage{
		model.MetricRequirement: {CoveragePct: 90},
		model.MetricTest:        {CoveragePct: 10},
	}}
	r := Validate(g, config.Default().Thresholds)

	assert.Equal(t, ExitTest, r.ExitCode)
	assert.Len(t, r.Advisories, 2)
	assert.False(t, r.Checks[1].Present)
	assert.False(t, r.Checks[2].Present)
}

func TestMetricAliases(t *testing.T) {
	t.Parallel()

	g := &model.Graph{Metrics: map[string]model.Coverage{
		"REQ":             {CoveragePct: 50},
		"req_to_adr":      {CoveragePct: 100},
		"req_to_scenario": {CoveragePct: 100},
		"req_to_test":     {CoveragePct: 100},
	}}
	r := Validate(g, config.Default().Thresholds)

	assert.Equal(t, ExitOverall, r.ExitCode)
	assert.Equal(t, "REQ", r.Checks[0].Metric)
	assert.Empty(t, r.Advisories)
}

func TestGapReport(t *testing.T) {
	t.Parallel()

	idx := &model.Index{Items: []model.Item{
		{ID: "REQ-F-001", References: []string{"ADR-001"}},
		{ID: "REQ-F-002", References: []string{}},
		{ID: "ADR-001", References: []string{}},
		{ID: "QA-SC-010", References: []string{}},
		{ID: "TEST-LOGIN-001", References: []string{"REQ-F-001"}},
		{ID: "TEST-ORPHAN-001", References: []string{}},
	}}
	g := graph.Compute(idx)
	r := Validate(g, config.Default().Thresholds)

	require.Equal(t, []string{"overall", "decision", "scenario"}, r.Failures)
	assert.Equal(t, ExitOverall, r.ExitCode)
	assert.Equal(t, []string{"REQ-F-002"}, r.Gaps.Unlinked)
	assert.Equal(t, []string{"REQ-F-002"}, r.Gaps.Missing["decision"])
	assert.Equal(t, []string{"REQ-F-001", "REQ-F-002"}, r.Gaps.Missing["scenario"])
	assert.Equal(t, []string{"QA-SC-010"}, r.Gaps.OrphanScenarios)
	assert.Equal(t, []string{"TEST-ORPHAN-001"}, r.Gaps.OrphanTests)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "FAIL Requirements overall coverage 50.00% < 80.00%")
	assert.Contains(t, out, "ok   Test linkage coverage 50.00% >= 40.00%")
	assert.Contains(t, out, "Available QA scenarios with no links: 1\n  QA-SC-010\n")
	// Test linkage passed, so orphan tests are not listed.
	assert.NotContains(t, out, "TEST-ORPHAN-001")
}

func TestReportOnPass(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Validate(metrics(100, 100, 100, 100), config.Default().Thresholds)))
	assert.NotContains(t, buf.String(), "Detailed coverage gaps")
}
