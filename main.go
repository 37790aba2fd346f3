// traceguide builds a traceability index and graph from a specification
// corpus and checks requirement coverage against thresholds.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/traceguide/internal/config"
)

var version = "dev"

// exitError carries a process exit code alongside the cause.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := runContext(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func run(args []string, stdout, stderr io.Writer) error {
	return runContext(context.Background(), args, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr, logger: slog.New(slog.NewTextHandler(stderr, nil))}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	a.printAdvisories()
	return err
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	stdout, stderr io.Writer
	logger         *slog.Logger

	configPath string
	logLevel   string

	advisories []string
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "traceguide",
		Short: "Requirements traceability for spec-driven repositories",
		Long: `traceguide indexes governed specification items (requirements, decisions,
components, design elements, scenarios and tests), builds the link graph
between them and checks requirement coverage against thresholds.

The pipeline runs in stages, each writing a JSON snapshot under the output
directory (build/ by default):

  traceguide index      discover the corpus and write spec-index.json
  traceguide graph      compute links and metrics into traceability.json
  traceguide validate   check coverage thresholds, exit 2-5 on a breach
  traceguide run        all three in sequence`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("traceguide {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		a.indexCmd(),
		a.graphCmd(),
		a.validateCmd(),
		a.reportCmd(),
		a.showCmd(),
		a.runCmd(),
		a.initCmd(),
	)
	return root
}

func (a *app) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// resolveRoot returns the absolute corpus root named by args, or the
// working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

// load resolves the corpus root and its configuration.
func (a *app) load(args []string) (string, *config.Config, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(root, a.configPath, a.logger)
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

func (a *app) advise(msgs ...string) {
	a.advisories = append(a.advisories, msgs...)
}

func (a *app) printAdvisories() {
	if len(a.advisories) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Advisories (%d):\n", len(a.advisories))
	for _, msg := range a.advisories {
		fmt.Fprintf(&b, "  - %s\n", msg)
	}
	_, _ = io.WriteString(a.stderr, b.String())
}
