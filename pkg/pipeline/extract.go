package pipeline

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/grailbio/base/traverse"

	"github.com/matzehuels/repairgraph/pkg/cache"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/io"
	"github.com/matzehuels/repairgraph/pkg/observability"
	"github.com/matzehuels/repairgraph/pkg/variant"
	"github.com/matzehuels/repairgraph/pkg/window"
)

// minChunk is the smallest number of reads handed to one extraction task.
const minChunk = 1024

// cachedTable is the cache encoding of an extracted library.
type cachedTable struct {
	Reference string        `json:"reference"`
	Rows      []variant.Row `json:"rows"`
	Reads     int           `json:"reads"`
	Dropped   int           `json:"dropped"`
}

// chunk is the private accumulator of one extraction task.
type chunk struct {
	table   *variant.Table
	dropped int
}

// ExtractLibrary windows every read of lib and counts distinct variants.
//
// Reads are processed in parallel chunks with private tables that are
// merged in chunk order, so the table is independent of scheduling.
// Malformed reads are logged, counted and skipped. Tables are cached by
// the content hash of the input file and the window options.
func (r *Runner) ExtractLibrary(ctx context.Context, e ExperimentConfig, lib LibraryConfig) (*variant.Table, LibraryStats, error) {
	hooks := observability.Pipeline()
	hooks.OnExtractStart(ctx, e.Name, lib.ID)
	start := time.Now()

	table, stats, err := r.extractLibrary(ctx, e, lib)
	hooks.OnExtractComplete(ctx, e.Name, lib.ID, stats.Reads, stats.Dropped, time.Since(start), err)
	if err != nil {
		return nil, stats, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "library %s", lib.ID)
	}

	r.Logger.Info("extracted library",
		"experiment", e.Name,
		"library", lib.ID,
		"reads", stats.Reads,
		"dropped", stats.Dropped,
		"variants", stats.Variants,
		"cached", stats.CacheHit,
		"duration", time.Since(start))
	return table, stats, nil
}

func (r *Runner) extractLibrary(ctx context.Context, e ExperimentConfig, lib LibraryConfig) (*variant.Table, LibraryStats, error) {
	stats := LibraryStats{Library: lib.ID}
	ex := e.Extractor()
	if err := ex.Validate(); err != nil {
		return nil, stats, err
	}

	inputHash, err := cache.HashFile(lib.Path)
	if err != nil {
		return nil, stats, errors.Wrap(errors.ErrCodeInvalidPath, err, "hash input")
	}
	key := r.Keyer.TableKey(inputHash, cache.TableKeyOpts{
		Library:   lib.ID,
		DSBPos:    ex.DSBPos,
		Width:     ex.Width,
		Normalize: ex.Normalize,
	})

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var ct cachedTable
		if err := json.Unmarshal(data, &ct); err == nil {
			if t, err := variant.FromRows(lib.ID, ct.Reference, ct.Rows); err == nil {
				observability.Cache().OnCacheHit(ctx, "table")
				stats.Reads, stats.Dropped, stats.Variants, stats.CacheHit = ct.Reads, ct.Dropped, t.Len(), true
				return t, r.withTotal(stats, lib), nil
			}
		}
		// Undecodable entries fall through to re-extraction.
	}
	observability.Cache().OnCacheMiss(ctx, "table")

	reads, err := io.ImportReads(lib.Path, lib.ID)
	if err != nil {
		return nil, stats, err
	}
	stats.Reads = len(reads)

	table, dropped, err := r.extract(ctx, ex, reads)
	if err != nil {
		return nil, stats, err
	}
	stats.Dropped = dropped
	stats.Variants = table.Len()

	if data, err := json.Marshal(cachedTable{
		Reference: table.Reference(),
		Rows:      table.Finalize(),
		Reads:     stats.Reads,
		Dropped:   stats.Dropped,
	}); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLTable); err == nil {
			observability.Cache().OnCacheSet(ctx, "table", len(data))
		}
	}
	return table, r.withTotal(stats, lib), nil
}

// withTotal fills in the frequency denominator of a library.
func (r *Runner) withTotal(stats LibraryStats, lib LibraryConfig) LibraryStats {
	stats.Total = lib.TotalReads
	if stats.Total == 0 {
		stats.Total = stats.Reads
	}
	return stats
}

// extract runs the extractor over reads in parallel chunks.
func (r *Runner) extract(ctx context.Context, ex window.Extractor, reads []window.Read) (*variant.Table, int, error) {
	library := ""
	if len(reads) > 0 {
		library = reads[0].Library
	}
	size := max(minChunk, (len(reads)+runtime.NumCPU()-1)/runtime.NumCPU())
	n := (len(reads) + size - 1) / size
	chunks := make([]chunk, n)

	err := traverse.Each(n, func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := chunk{table: variant.NewTable(library)}
		end := min((i+1)*size, len(reads))
		for j := i * size; j < end; j++ {
			w, err := ex.Extract(reads[j])
			if errors.Is(err, errors.ErrCodeMalformedAlignment) {
				r.Logger.Debug("dropped read", "library", library, "read", j+1, "err", errors.UserMessage(err))
				c.dropped++
				continue
			}
			if err != nil {
				return err
			}
			if err := c.table.Add(w); err != nil {
				return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "read %d", j+1)
			}
		}
		chunks[i] = c
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	table := variant.NewTable(library)
	dropped := 0
	for _, c := range chunks {
		if err := table.Merge(c.table); err != nil {
			return nil, 0, err
		}
		dropped += c.dropped
	}
	return table, dropped, nil
}

// BuildExperiment extracts every library of e and combines the repeats.
func (r *Runner) BuildExperiment(ctx context.Context, e ExperimentConfig) (*variant.Experiment, []LibraryStats, error) {
	tables := make([]*variant.Table, 0, len(e.Libraries))
	totals := make([]int, 0, len(e.Libraries))
	stats := make([]LibraryStats, 0, len(e.Libraries))

	for _, lib := range e.Libraries {
		t, s, err := r.ExtractLibrary(ctx, e, lib)
		if err != nil {
			return nil, stats, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "experiment %s", e.Name)
		}
		tables = append(tables, t)
		totals = append(totals, s.Total)
		stats = append(stats, s)
	}

	exp, err := variant.Combine(e.Name, tables, totals)
	if err != nil {
		return nil, stats, err
	}
	exp.DSBPos = e.DSBPos
	exp.Width = e.WindowWidth
	exp.ReverseComplement = e.ReverseComplement
	exp.LayoutGroup = e.LayoutGroup
	exp.SubstitutionMode = e.Substitutions

	r.Logger.Info("combined experiment",
		"experiment", e.Name,
		"libraries", len(tables),
		"variants", len(exp.Variants),
		"reads", exp.Count())
	return exp, stats, nil
}
