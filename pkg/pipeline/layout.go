package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/repairgraph/pkg/cache"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/layout"
	"github.com/matzehuels/repairgraph/pkg/observability"
	"github.com/matzehuels/repairgraph/pkg/variant"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// =============================================================================
// Graph and Layout Stages
// =============================================================================

// OpenEngine opens the configured layout store and returns a layout engine
// using it. Connection failures to remote stores are retried with backoff.
func OpenEngine(ctx context.Context, cfg *Config, logger *log.Logger) (*layout.Engine, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	var store layout.Store
	err := cache.RetryWithBackoff(ctx, func() error {
		s, err := layout.Open(ctx, cfg.Store.Kind, cfg.Store.URL, cfg.OutputPath("layouts"))
		if errors.Is(err, errors.ErrCodeStorage) && cfg.Store.Kind != layout.StoreFile {
			if logger != nil {
				logger.Warn("layout store unavailable, retrying", "kind", cfg.Store.Kind, "err", err)
			}
			return cache.Retryable(err)
		}
		store = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return layout.NewEngine(store, cfg.LayoutOptions(), logger), nil
}

// BuildGraph builds the variant graph of a layout group.
func (r *Runner) BuildGraph(ctx context.Context, group string, exps []*variant.Experiment) (*vgraph.Graph, error) {
	hooks := observability.Pipeline()
	hooks.OnGraphStart(ctx, group, len(exps))
	start := time.Now()

	g, err := vgraph.Build(exps)
	if err != nil {
		hooks.OnGraphComplete(ctx, group, 0, 0, time.Since(start), err)
		return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "build graph for %s", group)
	}
	hooks.OnGraphComplete(ctx, group, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)

	r.Logger.Info("built variant graph",
		"group", group,
		"experiments", len(exps),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", time.Since(start))
	return g, nil
}

// ComputeLayout returns the persisted layout of a group, computing it when
// the graph or the layout options changed.
func (r *Runner) ComputeLayout(ctx context.Context, group string, g *vgraph.Graph, exps []*variant.Experiment) (graph.Layout, error) {
	flags := make([]bool, len(exps))
	for i, e := range exps {
		flags[i] = e.ReverseComplement
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, group, g.NodeCount())
	start := time.Now()

	l, err := r.Engine.Compute(ctx, group, g, flags)
	hooks.OnLayoutComplete(ctx, group, time.Since(start), err)
	if err != nil {
		return graph.Layout{}, err
	}
	r.Logger.Debug("layout ready", "layout", layout.Describe(l))
	return l, nil
}

// LoadLayout returns the persisted layout of a group.
func (r *Runner) LoadLayout(ctx context.Context, group string) (graph.Layout, error) {
	l, ok, err := r.Engine.Store.Load(ctx, group)
	if err != nil {
		return graph.Layout{}, err
	}
	if !ok {
		return graph.Layout{}, errors.New(errors.ErrCodeNotFound, "no layout for group %q", group)
	}
	return l, nil
}
