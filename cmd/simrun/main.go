// Command simrun loads compiled simulation modules, runs them headless or
// under an interactive terminal UI, and generates the bundled sample
// modules.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simforge/sim-runtime/config"
	"github.com/simforge/sim-runtime/engine"
	simrt "github.com/simforge/sim-runtime/runtime"
)

var (
	configFile  string
	searchPaths []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simrun",
		Short: "run compiled simulation modules",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&searchPaths, "search", nil, "module search paths")

	rootCmd.AddCommand(newListCmd(), newInfoCmd(), newRunCmd(), newUICmd(), newGenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file (when present) with command-line
// overrides. Flags win.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if len(searchPaths) > 0 {
		cfg.SearchPaths = searchPaths
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}
	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	engine.SetLogger(log)
	return log, nil
}

func registryOptions(cfg *config.Config, log *zap.Logger) simrt.Options {
	return simrt.Options{
		SearchPaths:      cfg.SearchPaths,
		MemoryLimitPages: cfg.MemoryLimitPages,
		ErrorRetention:   cfg.ErrorRetention,
		Logger:           log,
	}
}

// findArtifacts scans the search paths for module artifacts and returns
// their names, sorted and deduplicated (first path wins, like resolution).
func findArtifacts(paths []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), simrt.ArtifactExt) {
				continue
			}
			name := strings.TrimSuffix(e.Name(), simrt.ArtifactExt)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list modules on the search paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			names := findArtifacts(cfg.SearchPaths)
			if len(names) == 0 {
				fmt.Printf("no modules found in %v\n", cfg.SearchPaths)
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [module]",
		Short: "show a module's variable table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			reg, err := simrt.NewRegistry(ctx, registryOptions(cfg, log))
			if err != nil {
				return err
			}
			defer reg.Close(ctx)

			desc, err := reg.Load(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("module %s (%d variables)\n\n", desc.Name(), len(desc.Variables()))
			printVariables(os.Stdout, desc)
			return nil
		},
	}
}

func newGenCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "write the bundled sample modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for name, raw := range sampleModules() {
				path := filepath.Join(outDir, name+simrt.ArtifactExt)
				if err := os.WriteFile(path, raw, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d bytes)\n", path, len(raw))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
