// Package pkg provides the core libraries of repairgraph.
//
// # Overview
//
// repairgraph turns aligned amplicon reads from CRISPR repair experiments
// into variant graphs: every distinct repair outcome in a window around the
// double-strand break (DSB) becomes a node, and outcomes one edit apart are
// linked. The pkg directory is organized into four areas:
//
//  1. Analysis: [window], [edit], [variant] and [vgraph]
//  2. Placement: [layout] with its memory, file, Redis and Mongo stores
//  3. Output: [io] tables, [graph] JSON and [render] node-link diagrams
//  4. Orchestration: [pipeline], [cache], [errors] and [observability]
//
// # Architecture
//
// The typical data flow:
//
//	Aligned reads (TSV, optionally gzip)
//	         ↓
//	    [window] package (cut each read to the DSB window)
//	         ↓
//	    [variant] package (count per library, combine repeats)
//	         ↓
//	    [vgraph] package (link variants one edit apart)
//	         ↓
//	    [layout] package (force layout, persisted per group)
//	         ↓
//	    DOT/SVG/PNG/PDF output
//
// # Quick Start
//
// Run a configuration end to end:
//
//	cfg, err := pipeline.Load("run.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := pipeline.OpenEngine(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := pipeline.NewRunner(nil, nil, engine, logger)
//	defer runner.Close()
//
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := result.Err(); err != nil {
//	    log.Printf("some experiments failed: %v", err)
//	}
//
// Or use the stages directly:
//
//	ex := window.Extractor{DSBPos: 100, Width: 20}
//	table := variant.NewTable("wt_r1")
//	for _, r := range reads {
//	    w, err := ex.Extract(r)
//	    if err != nil {
//	        continue // malformed read
//	    }
//	    table.Add(w)
//	}
//	exp, err := variant.Combine("wt", []*variant.Table{table}, []int{len(reads)})
//	g, err := vgraph.Build([]*variant.Experiment{exp})
//
// # Command Line
//
// The repairgraph binary in cmd/repairgraph wraps these packages; see
// internal/cli for the commands.
package pkg
