// Package pipeline provides the analysis pipeline for repairgraph.
//
// This package implements the complete extract → combine → graph → layout →
// render pipeline that is used by the CLI commands and the read API server.
// By centralizing this logic, every entry point produces the same tables,
// graphs and layouts from the same configuration.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Extract: Window each library's aligned reads around the break and
//     count distinct variants (parallel per read, cached per library)
//  2. Combine: Merge an experiment's repeat libraries into one variant list
//  3. Graph: Build the variant graph of each layout group
//  4. Layout: Compute and persist the group's embedding, then render it
//
// Independent experiments run in parallel. A failing experiment or group is
// recorded in the [Result] and does not stop the others.
//
// # Usage
//
// Load a configuration and execute the pipeline:
//
//	cfg, err := pipeline.Load("run.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := pipeline.OpenEngine(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Store.Close()
//
//	runner := pipeline.NewRunner(cache, nil, engine, logger)
//	result, err := runner.Execute(ctx, cfg)
//
// Run individual stages:
//
//	exp, stats, err := runner.BuildExperiment(ctx, cfg.Experiments[0])
//	g, err := runner.BuildGraph(ctx, "sgA", []*variant.Experiment{exp})
//	l, err := runner.ComputeLayout(ctx, "sgA", g, []*variant.Experiment{exp})
package pipeline

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/variant"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Experiments holds one entry per configured experiment, in order.
	Experiments []ExperimentResult

	// Groups holds one entry per layout group, in first-seen order.
	Groups []GroupResult

	// Stats contains timing information.
	Stats Stats
}

// ExperimentResult is the outcome of one experiment.
type ExperimentResult struct {
	Name       string
	Experiment *variant.Experiment
	Libraries  []LibraryStats
	Output     string // Variant table path
	Err        error
}

// GroupResult is the outcome of one layout group.
type GroupResult struct {
	Group       string
	Experiments []string
	Graph       *vgraph.Graph
	Layout      graph.Layout
	Outputs     []string // Written graph, layout and render paths
	Err         error
}

// LibraryStats describes the extraction of one library.
type LibraryStats struct {
	Library  string
	Reads    int  // Records decoded from the input
	Dropped  int  // Malformed reads skipped
	Variants int  // Distinct sequences in the table
	Total    int  // Frequency denominator
	CacheHit bool // Whether the table came from the cache
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ExtractTime time.Duration
	GraphTime   time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// Failed returns the number of experiments and groups that failed.
func (r *Result) Failed() int {
	n := 0
	for _, e := range r.Experiments {
		if e.Err != nil {
			n++
		}
	}
	for _, g := range r.Groups {
		if g.Err != nil {
			n++
		}
	}
	return n
}

// Err joins the errors of all failed units, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, e := range r.Experiments {
		if e.Err != nil {
			errs = append(errs, fmt.Errorf("experiment %s: %w", e.Name, e.Err))
		}
	}
	for _, g := range r.Groups {
		if g.Err != nil {
			errs = append(errs, fmt.Errorf("group %s: %w", g.Group, g.Err))
		}
	}
	return stderrors.Join(errs...)
}

// Experiment returns the successful experiment with the given name.
func (r *Result) Experiment(name string) (*variant.Experiment, bool) {
	for _, e := range r.Experiments {
		if e.Name == name && e.Err == nil {
			return e.Experiment, true
		}
	}
	return nil, false
}
