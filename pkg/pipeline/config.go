package pipeline

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/render"
	"github.com/matzehuels/repairgraph/pkg/variant"
	"github.com/matzehuels/repairgraph/pkg/window"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultOutputDir is where tables, graphs, layouts and renders are written.
	DefaultOutputDir = "out"

	// DefaultStoreKind persists layouts as JSON files under the output directory.
	DefaultStoreKind = layout.StoreFile

	// DefaultSubstitutions keeps substitutions as distinct variants.
	DefaultSubstitutions = variant.WithSubstitutions
)

// DefaultFormats are the render formats used when none are configured.
var DefaultFormats = []string{render.FormatSVG}

// =============================================================================
// Config - Pipeline Configuration
// =============================================================================

// Config is the TOML run configuration.
//
//	output_dir = "out"
//	seed = 42
//	[layout]
//	max_iterations = 500
//	[store]
//	kind = "file"
//	[[experiment]]
//	name = "wt_sgA"
//	dsb_pos = 100
//	window_width = 20
//	layout_group = "sgA"
//	  [[experiment.library]]
//	  id = "wt_sgA_r1"
//	  path = "reads/wt_sgA_r1.tsv.gz"
type Config struct {
	OutputDir   string             `toml:"output_dir"`
	Seed        int64              `toml:"seed"`
	Formats     []string           `toml:"formats"`
	Layout      LayoutConfig       `toml:"layout"`
	Store       StoreConfig        `toml:"store"`
	Experiments []ExperimentConfig `toml:"experiment"`

	// dir is the directory relative paths are resolved against.
	dir string
	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// LayoutConfig holds force simulation settings.
type LayoutConfig struct {
	MaxIterations int     `toml:"max_iterations"`
	Threshold     float64 `toml:"threshold"`
}

// StoreConfig selects where layouts are persisted.
type StoreConfig struct {
	Kind string `toml:"kind"` // memory | file | redis | mongo
	URL  string `toml:"url"`
}

// ExperimentConfig describes one experiment and its repeat libraries.
type ExperimentConfig struct {
	Name              string          `toml:"name"`
	DSBPos            int             `toml:"dsb_pos"`
	WindowWidth       int             `toml:"window_width"`
	Substitutions     string          `toml:"substitutions"` // with | without
	ReverseComplement bool            `toml:"reverse_complement"`
	LayoutGroup       string          `toml:"layout_group"`
	Libraries         []LibraryConfig `toml:"library"`
}

// LibraryConfig is one sequenced repeat.
type LibraryConfig struct {
	ID         string `toml:"id"`
	Path       string `toml:"path"`
	TotalReads int    `toml:"total_reads"` // 0 uses the number of reads in the file
}

// Load reads and validates a TOML configuration file. Relative paths in the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates TOML configuration. dir is the base for
// relative paths.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	c.dir = dir
	if err := c.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateAndSetDefaults checks the configuration and fills in defaults.
// This method is idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.validated {
		return nil
	}
	c.SetDefaults()

	if len(c.Experiments) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "no experiments configured")
	}
	if err := render.ValidateFormats(c.Formats); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "formats")
	}
	if err := c.LayoutOptions().Validate(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Experiments))
	for i := range c.Experiments {
		e := &c.Experiments[i]
		if err := e.validate(); err != nil {
			return err
		}
		if seen[e.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate experiment name %q", e.Name)
		}
		seen[e.Name] = true
	}

	c.resolvePaths()
	c.validated = true
	return nil
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Seed == 0 {
		c.Seed = layout.DefaultSeed
	}
	if len(c.Formats) == 0 {
		c.Formats = slices.Clone(DefaultFormats)
	}
	if c.Layout.MaxIterations == 0 {
		c.Layout.MaxIterations = layout.DefaultMaxIterations
	}
	if c.Layout.Threshold == 0 {
		c.Layout.Threshold = layout.DefaultThreshold
	}
	if c.Store.Kind == "" {
		c.Store.Kind = DefaultStoreKind
	}
	for i := range c.Experiments {
		e := &c.Experiments[i]
		if e.Substitutions == "" {
			e.Substitutions = DefaultSubstitutions
		}
		if e.LayoutGroup == "" {
			e.LayoutGroup = e.Name
		}
	}
}

func (c *Config) validateStore() error {
	switch c.Store.Kind {
	case layout.StoreMemory, layout.StoreFile:
		return nil
	case layout.StoreRedis, layout.StoreMongo:
		return errors.ValidateStoreURL(c.Store.Kind, c.Store.URL)
	}
	return errors.New(errors.ErrCodeInvalidConfig, "unknown store kind %q (must be one of: memory, file, redis, mongo)", c.Store.Kind)
}

func (e *ExperimentConfig) validate() error {
	if err := errors.ValidateName("experiment", e.Name); err != nil {
		return err
	}
	if err := errors.ValidateName("layout group", e.LayoutGroup); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "experiment %q", e.Name)
	}
	if err := e.Extractor().Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "experiment %q", e.Name)
	}
	switch e.Substitutions {
	case variant.WithSubstitutions, variant.WithoutSubstitutions:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "experiment %q: substitutions must be %q or %q, got %q",
			e.Name, variant.WithSubstitutions, variant.WithoutSubstitutions, e.Substitutions)
	}
	if len(e.Libraries) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "experiment %q: no libraries", e.Name)
	}

	ids := make(map[string]bool, len(e.Libraries))
	for _, lib := range e.Libraries {
		if err := errors.ValidateName("library", lib.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "experiment %q", e.Name)
		}
		if ids[lib.ID] {
			return errors.New(errors.ErrCodeInvalidConfig, "experiment %q: duplicate library %q", e.Name, lib.ID)
		}
		ids[lib.ID] = true
		if err := errors.ValidatePath(lib.Path); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "experiment %q: library %q", e.Name, lib.ID)
		}
		if lib.TotalReads < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "experiment %q: library %q: total_reads must not be negative", e.Name, lib.ID)
		}
	}
	return nil
}

// =============================================================================
// Config Accessors
// =============================================================================

// Normalize reports whether substitutions are folded into matches.
func (e ExperimentConfig) Normalize() bool {
	return e.Substitutions == variant.WithoutSubstitutions
}

// Extractor returns the window extractor for the experiment.
func (e ExperimentConfig) Extractor() window.Extractor {
	return window.Extractor{DSBPos: e.DSBPos, Width: e.WindowWidth, Normalize: e.Normalize()}
}

// LayoutOptions returns the force simulation options.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		Seed:          c.Seed,
		MaxIterations: c.Layout.MaxIterations,
		Threshold:     c.Layout.Threshold,
	}
}

// Resolve returns path relative to the configuration file's directory.
// Absolute paths are returned unchanged.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

func (c *Config) resolvePaths() {
	c.OutputDir = c.Resolve(c.OutputDir)
	for i := range c.Experiments {
		for j := range c.Experiments[i].Libraries {
			lib := &c.Experiments[i].Libraries[j]
			lib.Path = c.Resolve(lib.Path)
		}
	}
}

// OutputPath returns the path of a file under the output directory.
func (c *Config) OutputPath(elem ...string) string {
	return filepath.Join(append([]string{c.OutputDir}, elem...)...)
}

// Experiment returns the experiment with the given name.
func (c *Config) Experiment(name string) (ExperimentConfig, bool) {
	for _, e := range c.Experiments {
		if e.Name == name {
			return e, true
		}
	}
	return ExperimentConfig{}, false
}

// Groups returns the layout groups in first-seen order.
func (c *Config) Groups() []string {
	var groups []string
	for _, e := range c.Experiments {
		if !slices.Contains(groups, e.LayoutGroup) {
			groups = append(groups, e.LayoutGroup)
		}
	}
	return groups
}

// GroupExperiments returns the names of a group's experiments in
// configuration order.
func (c *Config) GroupExperiments(group string) []string {
	var names []string
	for _, e := range c.Experiments {
		if e.LayoutGroup == group {
			names = append(names, e.Name)
		}
	}
	return names
}
