package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/discover"
	"github.com/phobologic/traceguide/internal/extract"
	"github.com/phobologic/traceguide/internal/focus"
	"github.com/phobologic/traceguide/internal/graph"
	"github.com/phobologic/traceguide/internal/index"
	"github.com/phobologic/traceguide/internal/metrics"
	"github.com/phobologic/traceguide/internal/model"
	"github.com/phobologic/traceguide/internal/report"
	"github.com/phobologic/traceguide/internal/snapshot"
	"github.com/phobologic/traceguide/internal/toon"
	"github.com/phobologic/traceguide/internal/validate"
)

func (a *app) indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [root]",
		Short: "Discover the corpus and write the index snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.load(args)
			if err != nil {
				return err
			}
			_, err = a.buildIndex(cmd.Context(), root, cfg)
			return err
		},
	}
}

func (a *app) graphCmd() *cobra.Command {
	var format, metricsFile string
	cmd := &cobra.Command{
		Use:   "graph [root]",
		Short: "Compute links and coverage metrics from the index snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "toon", "none":
			default:
				return fmt.Errorf("unsupported --format %q (want json, toon or none)", format)
			}
			root, cfg, err := a.load(args)
			if err != nil {
				return err
			}
			g, idx, err := a.buildGraph(root, cfg)
			if err != nil {
				return err
			}
			if metricsFile != "" {
				if err := metrics.WriteTextfile(metricsFile, g, len(idx.DuplicateIDs)); err != nil {
					return err
				}
				a.logger.Info("wrote metrics", slog.String("path", metricsFile))
			}
			return a.printGraph(root, g, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "none", "also print the graph to stdout: json, toon or none")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write coverage gauges in Prometheus textfile format")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var th thresholdFlags
	cmd := &cobra.Command{
		Use:   "validate [root]",
		Short: "Check coverage metrics in the graph snapshot against thresholds",
		Long: `Check coverage metrics in the graph snapshot against thresholds.

Exit codes:
  0 = all thresholds met
  1 = missing snapshot or configuration error
  2 = overall requirement coverage below threshold
  3 = requirement to ADR coverage below threshold
  4 = requirement to scenario coverage below threshold
  5 = requirement to test coverage below threshold

When several thresholds fail, the code of the first one in this order wins.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.load(args)
			if err != nil {
				return err
			}
			if err := cfg.MergeThresholds(th.overrides(cmd)); err != nil {
				return err
			}
			g, err := a.readGraph(root, cfg)
			if err != nil {
				return err
			}
			return a.validate(g, cfg)
		},
	}
	th.register(cmd)
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var summaryFile string
	cmd := &cobra.Command{
		Use:   "report [root]",
		Short: "Write the markdown traceability matrix and orphan report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.load(args)
			if err != nil {
				return err
			}
			g, err := a.readGraph(root, cfg)
			if err != nil {
				return err
			}
			paths, err := report.Write(cfg.ReportsDir(root), g)
			if err != nil {
				return err
			}
			for _, p := range paths {
				_, _ = fmt.Fprintf(a.stderr, "wrote %s\n", p)
			}
			if summaryFile != "" {
				if err := report.UpdateSummaryFile(summaryFile, g); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(a.stderr, "wrote coverage summary to %s\n", summaryFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&summaryFile, "summary-file", "", "insert or refresh a coverage summary block in this markdown file")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var byPath bool
	cmd := &cobra.Command{
		Use:   "show <query> [root]",
		Short: "Print the items matching query and their direct links in TOON format",
		Long: `Print the items whose identifier contains query (case-insensitive), the
items they link to or are linked from, and the connecting edges. With --path,
query matches the path of the defining file instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.load(args[1:])
			if err != nil {
				return err
			}
			g, err := a.readGraph(root, cfg)
			if err != nil {
				return err
			}
			var sub *model.Graph
			if byPath {
				sub = focus.ByPath(g, args[0])
			} else {
				sub = focus.ByID(g, args[0])
			}
			_, _ = fmt.Fprintln(a.stdout, toon.Encode(filepath.Base(root), sub))
			return nil
		},
	}
	cmd.Flags().BoolVar(&byPath, "path", false, "match query against the defining file path")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var th thresholdFlags
	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Run index, graph and validate in sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := a.load(args)
			if err != nil {
				return err
			}
			if err := cfg.MergeThresholds(th.overrides(cmd)); err != nil {
				return err
			}
			if _, err := a.buildIndex(cmd.Context(), root, cfg); err != nil {
				return err
			}
			g, _, err := a.buildGraph(root, cfg)
			if err != nil {
				return err
			}
			return a.validate(g, cfg)
		},
	}
	th.register(cmd)
	return cmd
}

// buildIndex discovers and reads the corpus, folds the per-file
// contributions and writes the index snapshot.
func (a *app) buildIndex(ctx context.Context, root string, cfg *config.Config) (*model.Index, error) {
	corpus, err := discover.Files(root, cfg)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	a.logger.Debug("discovered corpus",
		slog.Int("documents", len(corpus.Documents)),
		slog.Int("tests", len(corpus.Tests)),
		slog.Int("sources", len(corpus.Sources)),
		slog.Int("excluded", len(corpus.Excluded)))

	ex, err := extract.New(cfg)
	if err != nil {
		return nil, err
	}

	blobs, advisories, err := index.Read(ctx, root, corpus, cfg, a.logger)
	a.advise(advisories...)
	if err != nil {
		return nil, err
	}

	idx, advisories := index.Build(blobs, ex)
	a.advise(advisories...)
	idx.IgnoredPatterns = append([]string(nil), cfg.Exclude.Globs...)

	path := cfg.IndexPath(root)
	if err := snapshot.WriteIndex(path, idx); err != nil {
		return nil, err
	}
	a.logger.Info("wrote index",
		slog.String("path", path),
		slog.Int("items", len(idx.Items)),
		slog.Int("duplicates", len(idx.DuplicateIDs)))
	return idx, nil
}

// buildGraph reads the index snapshot, computes the graph and writes the
// graph snapshot.
func (a *app) buildGraph(root string, cfg *config.Config) (*model.Graph, *model.Index, error) {
	idx, err := snapshot.ReadIndex(cfg.IndexPath(root))
	if err != nil {
		return nil, nil, precondition(err, "index")
	}

	g := graph.Compute(idx)

	path := cfg.GraphPath(root)
	if err := snapshot.WriteGraph(path, g); err != nil {
		return nil, nil, err
	}
	a.logger.Info("wrote graph",
		slog.String("path", path),
		slog.Float64("coverage", g.Metrics[model.MetricRequirement].CoveragePct))
	return g, idx, nil
}

func (a *app) readGraph(root string, cfg *config.Config) (*model.Graph, error) {
	g, err := snapshot.ReadGraph(cfg.GraphPath(root))
	if err != nil {
		return nil, precondition(err, "graph")
	}
	return g, nil
}

// validate prints the threshold report and maps a failure to its exit code.
func (a *app) validate(g *model.Graph, cfg *config.Config) error {
	r := validate.Validate(g, cfg.Thresholds)
	a.advise(r.Advisories...)
	if err := validate.WriteReport(a.stdout, r); err != nil {
		return err
	}
	if !r.Passed() {
		return &exitError{
			code: r.ExitCode,
			err:  fmt.Errorf("coverage below threshold: %s", strings.Join(r.Failures, ", ")),
		}
	}
	return nil
}

func (a *app) printGraph(root string, g *model.Graph, format string) error {
	switch format {
	case "json":
		data, err := snapshot.Marshal(g)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	case "toon":
		_, _ = fmt.Fprintln(a.stdout, toon.Encode(filepath.Base(root), g))
	}
	return nil
}

// precondition turns a missing upstream snapshot into an error naming the
// command that produces it.
func precondition(err error, stage string) error {
	if errors.Is(err, snapshot.ErrMissing) {
		return &exitError{code: 1, err: fmt.Errorf("%w: run \"traceguide %s\" first", err, stage)}
	}
	return err
}

// thresholdFlags are the per-invocation threshold overrides.
type thresholdFlags struct {
	overall, decision, scenario, test float64
}

var thresholdFlagNames = map[string]string{
	"min-req":          "overall",
	"min-req-adr":      "decision",
	"min-req-scenario": "scenario",
	"min-req-test":     "test",
}

func (t *thresholdFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&t.overall, "min-req", 0, "minimum overall requirement coverage percent")
	f.Float64Var(&t.decision, "min-req-adr", 0, "minimum requirement to ADR coverage percent")
	f.Float64Var(&t.scenario, "min-req-scenario", 0, "minimum requirement to scenario coverage percent")
	f.Float64Var(&t.test, "min-req-test", 0, "minimum requirement to test coverage percent")
}

// overrides returns only the flags set on the command line, so configured
// thresholds apply otherwise.
func (t *thresholdFlags) overrides(cmd *cobra.Command) map[string]float64 {
	values := map[string]float64{
		"overall":  t.overall,
		"decision": t.decision,
		"scenario": t.scenario,
		"test":     t.test,
	}
	out := make(map[string]float64)
	for flag, name := range thresholdFlagNames {
		if cmd.Flags().Changed(flag) {
			out[name] = values[name]
		}
	}
	return out
}
