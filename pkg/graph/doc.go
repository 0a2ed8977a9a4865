// Package graph provides serialization types for variant graphs and layouts.
//
// This package defines the canonical wire format for repairgraph's graph
// data, used for JSON files, API responses, caching and layout stores.
//
// # Architecture
//
// The package sits at the serialization boundary between internal
// representations and external formats:
//
//   - [Graph], [Layout]: Serialization types (this package)
//   - pkg/vgraph.Graph: Internal variant graph
//
// Use [FromVariantGraph]/[ToVariantGraph] to convert between them. Layouts
// have no separate internal form; the layout engine produces [Layout]
// values directly and stores persist them as-is.
//
// # Graph Serialization
//
// Graphs use a node-link JSON format. Node IDs are window sequences and
// ops are edit signatures:
//
//	{
//	  "experiments": ["wt"],
//	  "nodes": [
//	    {"id": "CCCCGGGG", "ops": "", "depth": 0, "reference": true},
//	    {"id": "CCCGGGG", "ops": "3D", "depth": 1}
//	  ],
//	  "edges": [{"from": "CCCCGGGG", "to": "CCCGGGG", "kind": "deletion"}]
//	}
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("sgA.graph.json") // File → vgraph
//	graph.WriteGraphFile(g, "output.json")        // vgraph → File
//	data, _ := graph.MarshalGraph(g)              // vgraph → []byte
//	parsed, _ := graph.UnmarshalGraph(data)       // []byte → Graph
//
// # Layout Serialization
//
//	{
//	  "id": "5c4f…",
//	  "group": "sgA",
//	  "version": "9d1e…",
//	  "positions": [{"id": "CCCCGGGG", "x": 0, "y": 0}],
//	  "converged": true,
//	  "iterations": 212
//	}
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
