package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/traceguide/internal/config"
)

// initCmd implements `traceguide init`, which writes the default
// configuration to <root>/traceguide.yaml.
func (a *app) initCmd() *cobra.Command {
	var force, dryRun bool
	cmd := &cobra.Command{
		Use:   "init [root]",
		Short: "Write a " + config.FileName + " with the default settings",
		Long: `Write a ` + config.FileName + ` with the default settings to the corpus root.

The file lists the document, test and source directories that are scanned,
the guidance exclusions, placeholder patterns, output paths and coverage
thresholds. An existing file is left untouched unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()

			// --dry-run prints the file without touching the corpus.
			if dryRun {
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("marshaling config: %w", err)
				}
				_, err = a.stdout.Write(data)
				return err
			}

			root, err := resolveRoot(args)
			if err != nil {
				return err
			}
			path := filepath.Join(root, config.FileName)

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			if err := cfg.SaveToFile(path); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote default configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration instead of writing it")
	return cmd
}
