package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/repairgraph/pkg/cache"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/observability"
	"github.com/matzehuels/repairgraph/pkg/render"
	"github.com/matzehuels/repairgraph/pkg/render/nodelink"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// RenderWithCacheInfo renders a group's layout in each format and reports
// whether every artifact came from the cache. Artifacts are cached by
// layout version, graph content and render options.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *vgraph.Graph, l graph.Layout, formats []string, opts nodelink.Options) (map[string][]byte, bool, error) {
	if err := render.ValidateFormats(formats); err != nil {
		return nil, false, err
	}

	gj := graph.FromVariantGraph(g)
	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	graphHash := cache.Hash(graphData)
	keyOpts := func(format string) cache.ArtifactKeyOpts {
		return cache.ArtifactKeyOpts{
			Format:     format,
			Experiment: opts.Experiment,
			GraphHash:  graphHash,
			Labels:     labelOpts(opts),
		}
	}

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		key := r.Keyer.ArtifactKey(l.Version, keyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
			continue
		}
		allCached = false
		break
	}
	if allCached && len(artifacts) == len(formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, formats)
	start := time.Now()

	for _, format := range formats {
		data, err := nodelink.Render(gj, l, format, opts)
		if err != nil {
			hooks.OnRenderComplete(ctx, formats, time.Since(start), err)
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data

		if err := r.Cache.Set(ctx, r.Keyer.ArtifactKey(l.Version, keyOpts(format)), data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	hooks.OnRenderComplete(ctx, formats, time.Since(start), nil)
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *vgraph.Graph, l graph.Layout, formats []string, opts nodelink.Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, l, formats, opts)
	return artifacts, err
}

func labelOpts(opts nodelink.Options) []string {
	labels := []string{fmt.Sprintf("scale=%g", opts.Scale)}
	if opts.Detailed {
		labels = append(labels, "detailed")
	}
	return labels
}
