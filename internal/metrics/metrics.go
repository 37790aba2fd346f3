// Package metrics exports coverage figures as Prometheus gauges, written in
// the node exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
)

const namespace = "traceguide"

// Collector holds the gauges for one graph snapshot.
type Collector struct {
	Coverage   *prometheus.GaugeVec
	Items      *prometheus.GaugeVec
	Duplicates prometheus.Gauge
	Orphans    *prometheus.GaugeVec
}

// New registers the traceguide gauges on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Coverage: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_ratio",
			Help:      "Share of requirements with the links a metric counts, from 0 to 1.",
		}, []string{"metric"}),
		Items: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "Governed items in the index, by identifier class.",
		}, []string{"class"}),
		Duplicates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_ids",
			Help:      "Identifiers defined more than once in the corpus.",
		}),
		Orphans: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans",
			Help:      "Items outside every requirement's link set, by kind.",
		}, []string{"kind"}),
	}
}

// Observe sets every gauge from g. duplicates is the number of distinct
// duplicated identifiers recorded in the index.
func (c *Collector) Observe(g *model.Graph, duplicates int) {
	for name, cov := range g.Metrics {
		c.Coverage.WithLabelValues(name).Set(cov.CoveragePct / 100)
	}

	counts := make(map[ident.Class]int)
	for _, it := range g.Items {
		counts[ident.ClassOf(it.ID)]++
	}
	for _, cl := range ident.Classes() {
		c.Items.WithLabelValues(cl.String()).Set(float64(counts[cl]))
	}

	c.Duplicates.Set(float64(duplicates))

	c.Orphans.WithLabelValues("requirement").Set(float64(len(g.Orphans.RequirementsNoLinks)))
	c.Orphans.WithLabelValues("scenario").Set(float64(len(g.Orphans.ScenariosNoReq)))
	c.Orphans.WithLabelValues("component").Set(float64(len(g.Orphans.ComponentsNoReq)))
	c.Orphans.WithLabelValues("decision").Set(float64(len(g.Orphans.DecisionsNoReq)))
	c.Orphans.WithLabelValues("test").Set(float64(len(g.Orphans.TestsNoReq)))
}

// WriteTextfile writes the gauges for g to path using a private registry.
func WriteTextfile(path string, g *model.Graph, duplicates int) error {
	reg := prometheus.NewRegistry()
	New(reg).Observe(g, duplicates)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
