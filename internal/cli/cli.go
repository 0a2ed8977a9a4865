// Package cli implements the repairgraph command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repairgraph/pkg/buildinfo"
	"github.com/matzehuels/repairgraph/pkg/cache"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/pipeline"
	"github.com/matzehuels/repairgraph/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "repairgraph"

	// defaultAddr is the listen address of the read API server.
	defaultAddr = "127.0.0.1:8080"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "repairgraph aggregates DSB repair outcomes into variant graphs",
		Long: `repairgraph windows aligned amplicon reads around a double-strand break,
counts the distinct repair outcomes per library, merges repeats into
per-experiment variant tables, links variants that differ by one edit into
a graph and lays the graph out for visual comparison across experiments.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.runCommand())
	root.AddCommand(c.extractCommand())
	root.AddCommand(c.combineCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped
// to the binary's version so tables extracted by another release are not
// reused.
func (c *CLI) newRunner(engine *layout.Engine, noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(nil, appName+":"+buildinfo.Version+":")
	return pipeline.NewRunner(store, keyer, engine, c.Logger), nil
}

// newConfigRunner loads a configuration and creates a runner whose layout
// engine uses the configured store.
func (c *CLI) newConfigRunner(ctx context.Context, path string, noCache bool) (*pipeline.Config, *pipeline.Runner, error) {
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, nil, err
	}
	engine, err := pipeline.OpenEngine(ctx, cfg, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	runner, err := c.newRunner(engine, noCache)
	if err != nil {
		engine.Store.Close()
		return nil, nil, err
	}
	return cfg, runner, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/repairgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// trimExt strips the known multi-part extensions of repairgraph files.
func trimExt(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".tsv", ".variants", ".graph.json", ".layout.json", ".json"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) ([]string, error) {
	if s == "" {
		return []string{render.FormatSVG}, nil
	}
	formats := strings.Split(s, ",")
	for i := range formats {
		formats[i] = strings.TrimSpace(formats[i])
	}
	return formats, render.ValidateFormats(formats)
}
