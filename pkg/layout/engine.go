package layout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// Default simulation options.
const (
	DefaultMaxIterations = 500
	DefaultThreshold     = 1e-3
	DefaultSeed          = 42
)

// Options control the force simulation. They are part of the layout version.
type Options struct {
	Seed          int64
	MaxIterations int
	Threshold     float64
}

// DefaultOptions returns the default simulation options.
func DefaultOptions() Options {
	return Options{Seed: DefaultSeed, MaxIterations: DefaultMaxIterations, Threshold: DefaultThreshold}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.MaxIterations <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout max_iterations must be positive, got %d", o.MaxIterations)
	}
	if o.Threshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout threshold must not be negative, got %g", o.Threshold)
	}
	return nil
}

// Engine computes group layouts and persists them in a Store.
//
// An Engine is safe for concurrent use. Concurrent Compute calls for the
// same group and version share one simulation.
type Engine struct {
	Store   Store
	Options Options
	Logger  *log.Logger

	flight singleflight.Group
}

// NewEngine creates an engine. A nil store keeps layouts in memory and a nil
// logger uses the default logger.
func NewEngine(store Store, opts Options, logger *log.Logger) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Store: store, Options: opts, Logger: logger}
}

// ResolveFlip returns the reverse-complement flag shared by a group's
// experiments. Mixed flags are an INCONSISTENT_REFERENCE error.
func ResolveFlip(group string, flags []bool) (bool, error) {
	if len(flags) == 0 {
		return false, nil
	}
	for _, f := range flags[1:] {
		if f != flags[0] {
			return false, errors.InconsistentReference("layout group %q mixes reverse-complemented and forward experiments", group)
		}
	}
	return flags[0], nil
}

// Version returns the layout version of g under the given flip flag and
// options.
func Version(g *vgraph.Graph, flip bool, opts Options) string {
	h := sha256.New()
	nodes := g.Nodes()
	seqs := make([]string, len(nodes))
	for i, n := range nodes {
		seqs[i] = n.Sequence
	}
	slices.Sort(seqs)
	for _, s := range seqs {
		fmt.Fprintf(h, "n\t%s\n", s)
	}

	edges := make([]string, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		a, b := e.From, e.To
		if b < a {
			a, b = b, a
		}
		edges = append(edges, a+"\t"+b+"\t"+string(e.Kind))
	}
	slices.Sort(edges)
	for _, e := range edges {
		fmt.Fprintf(h, "e\t%s\n", e)
	}

	fmt.Fprintf(h, "flip\t%t\nseed\t%d\niter\t%d\nthreshold\t%g\n", flip, opts.Seed, opts.MaxIterations, opts.Threshold)
	return hex.EncodeToString(h.Sum(nil))
}

// Compute returns the layout of group for graph g.
//
// flags are the reverse-complement flags of the group's experiments. A
// stored layout with a matching version is returned without recomputation.
// Otherwise the layout is computed from the graph and options alone and
// written with compare-and-swap, so equal versions carry equal positions. When
// another writer wins, Compute returns the winner's layout if it has the
// same version and a VERSION_CONFLICT error otherwise.
func (e *Engine) Compute(ctx context.Context, group string, g *vgraph.Graph, flags []bool) (graph.Layout, error) {
	if err := errors.ValidateName("layout group", group); err != nil {
		return graph.Layout{}, err
	}
	if err := e.Options.Validate(); err != nil {
		return graph.Layout{}, err
	}
	flip, err := ResolveFlip(group, flags)
	if err != nil {
		return graph.Layout{}, err
	}
	version := Version(g, flip, e.Options)

	prev, found, err := e.Store.Load(ctx, group)
	if err != nil {
		return graph.Layout{}, err
	}
	if found && prev.Version == version {
		e.Logger.Debug("layout up to date", "group", group, "version", version[:12])
		return prev, nil
	}

	v, err, shared := e.flight.Do(group+"@"+version, func() (any, error) {
		return e.computeAndStore(ctx, group, g, flip, version, prev, found)
	})
	if err != nil {
		return graph.Layout{}, err
	}
	if shared {
		e.Logger.Debug("layout computation shared", "group", group)
	}
	return v.(graph.Layout).Clone(), nil
}

func (e *Engine) computeAndStore(ctx context.Context, group string, g *vgraph.Graph, flip bool, version string, prev graph.Layout, found bool) (graph.Layout, error) {
	start := time.Now()
	sim := newSimulation(g, e.Options.Seed)
	res, err := sim.run(ctx, e.Options.MaxIterations, e.Options.Threshold)
	if err != nil {
		return graph.Layout{}, errors.Wrap(errors.ErrCodeInternal, err, "layout group %s", group)
	}
	if !res.converged {
		e.Logger.Warn("layout did not converge", "group", group, "iterations", res.iterations, "threshold", e.Options.Threshold)
	}

	l := graph.Layout{
		ID:         uuid.NewString(),
		Group:      group,
		Version:    version,
		Positions:  make([]graph.Position, len(sim.nodes)),
		Converged:  res.converged,
		Iterations: res.iterations,
		Flipped:    flip,
		Seed:       e.Options.Seed,
		CreatedAt:  time.Now().UTC(),
	}
	for i, n := range sim.nodes {
		p := res.positions[i]
		if flip {
			p.x = -p.x
		}
		l.Positions[i] = graph.Position{ID: n.Sequence, X: p.x, Y: p.y}
	}

	prevVersion := ""
	if found {
		prevVersion = prev.Version
	}
	if err := e.Store.CompareAndSwap(ctx, group, prevVersion, l); err != nil {
		if !errors.IsVersionConflict(err) {
			return graph.Layout{}, err
		}
		cur, ok, lerr := e.Store.Load(ctx, group)
		if lerr != nil {
			return graph.Layout{}, lerr
		}
		if ok && cur.Version == version {
			e.Logger.Debug("layout written concurrently", "group", group)
			return cur, nil
		}
		return graph.Layout{}, err
	}

	e.Logger.Info("computed layout",
		"group", group,
		"nodes", len(l.Positions),
		"iterations", res.iterations,
		"converged", res.converged,
		"duration", time.Since(start))
	return l, nil
}

// Describe returns a short human-readable summary of a layout.
func Describe(l graph.Layout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d nodes, version %.12s", l.Group, len(l.Positions), l.Version)
	if !l.Converged {
		fmt.Fprintf(&b, " (not converged after %d iterations)", l.Iterations)
	}
	if l.Flipped {
		b.WriteString(", mirrored")
	}
	return b.String()
}
