package pipeline

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/repairgraph/pkg/cache"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/render/nodelink"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the read API server use it.
//
// The Runner is stateless except for the cache, the layout engine and the
// logger; it doesn't store pipeline results. Multiple goroutines can safely
// use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Engine *layout.Engine
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If engine is nil, layouts are computed with default options and kept in memory.
func NewRunner(c cache.Cache, keyer cache.Keyer, engine *layout.Engine, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if engine == nil {
		engine = layout.NewEngine(nil, layout.DefaultOptions(), logger)
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Engine: engine,
		Logger: logger,
	}
}

// Execute runs every experiment and layout group of cfg and writes the
// outputs below cfg.OutputDir:
//
//	variants/<experiment>.variants.tsv
//	groups/<group>.graph.json
//	groups/<group>.layout.json
//	groups/<group>.<format>
//
// Experiments run in parallel. A failed experiment fails its layout group;
// other experiments and groups continue. Execute returns an error only for
// invalid configuration or cancellation; unit failures are in the Result.
func (r *Runner) Execute(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	result := &Result{
		RunID:       uuid.NewString(),
		Experiments: make([]ExperimentResult, len(cfg.Experiments)),
	}
	logger := r.Logger.With("run", result.RunID[:8])
	for _, dir := range []string{"variants", "groups"} {
		if err := os.MkdirAll(cfg.OutputPath(dir), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "create output dir")
		}
	}

	// Stage 1: Extract and combine
	extractStart := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	for i, e := range cfg.Experiments {
		eg.Go(func() error {
			result.Experiments[i] = r.runExperiment(egCtx, cfg, e)
			return egCtx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	result.Stats.ExtractTime = time.Since(extractStart)

	for _, er := range result.Experiments {
		if er.Err != nil {
			logger.Error("experiment failed", "experiment", er.Name, "err", er.Err)
		}
	}

	// Stage 2: Graph, layout and render per group
	for _, group := range cfg.Groups() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gr := r.runGroup(ctx, cfg, group, result)
		if gr.Err != nil {
			logger.Error("group failed", "group", group, "err", gr.Err)
		}
		result.Groups = append(result.Groups, gr)
	}

	logger.Info("run complete",
		"experiments", len(result.Experiments),
		"groups", len(result.Groups),
		"failed", result.Failed(),
		"duration", time.Since(extractStart))
	return result, nil
}

func (r *Runner) runExperiment(ctx context.Context, cfg *Config, e ExperimentConfig) ExperimentResult {
	er := ExperimentResult{Name: e.Name}
	exp, stats, err := r.BuildExperiment(ctx, e)
	er.Libraries = stats
	if err != nil {
		er.Err = err
		return er
	}
	er.Experiment = exp
	er.Output = cfg.OutputPath("variants", e.Name+".variants.tsv")
	if err := io.ExportVariants(exp, er.Output); err != nil {
		er.Err = errors.Wrap(errors.ErrCodeStorage, err, "experiment %s", e.Name)
	}
	return er
}

func (r *Runner) runGroup(ctx context.Context, cfg *Config, group string, result *Result) GroupResult {
	gr := GroupResult{Group: group, Experiments: cfg.GroupExperiments(group)}

	var exps []*variant.Experiment
	var failed []string
	for _, name := range gr.Experiments {
		exp, ok := result.Experiment(name)
		if !ok {
			failed = append(failed, name)
			continue
		}
		exps = append(exps, exp)
	}
	if len(failed) > 0 {
		gr.Err = errors.New(errors.ErrCodeInvalidInput, "skipped: experiments %v failed", failed)
		return gr
	}

	graphStart := time.Now()
	g, err := r.BuildGraph(ctx, group, exps)
	result.Stats.GraphTime += time.Since(graphStart)
	if err != nil {
		gr.Err = err
		return gr
	}
	gr.Graph = g

	layoutStart := time.Now()
	l, err := r.ComputeLayout(ctx, group, g, exps)
	result.Stats.LayoutTime += time.Since(layoutStart)
	if err != nil {
		gr.Err = err
		return gr
	}
	gr.Layout = l

	graphPath := cfg.OutputPath("groups", group+".graph.json")
	if err := graph.WriteGraphFile(g, graphPath); err != nil {
		gr.Err = errors.Wrap(errors.ErrCodeStorage, err, "write graph")
		return gr
	}
	layoutPath := cfg.OutputPath("groups", group+".layout.json")
	if err := graph.WriteLayoutFile(l, layoutPath); err != nil {
		gr.Err = errors.Wrap(errors.ErrCodeStorage, err, "write layout")
		return gr
	}
	gr.Outputs = append(gr.Outputs, graphPath, layoutPath)

	renderStart := time.Now()
	artifacts, err := r.Render(ctx, g, l, cfg.Formats, nodelink.Options{Detailed: true})
	result.Stats.RenderTime += time.Since(renderStart)
	if err != nil {
		gr.Err = err
		return gr
	}
	for _, format := range slices.Sorted(maps.Keys(artifacts)) {
		path := cfg.OutputPath("groups", group+"."+format)
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			gr.Err = errors.Wrap(errors.ErrCodeStorage, err, "write %s", filepath.Base(path))
			return gr
		}
		gr.Outputs = append(gr.Outputs, path)
	}
	return gr
}

// Close releases resources held by the runner: the cache and the layout store.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Engine != nil && r.Engine.Store != nil {
		if cerr := r.Engine.Store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
