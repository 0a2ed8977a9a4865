package graph

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// =============================================================================
// Graph - Variant Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for variant graphs.
// Used for JSON files, API responses, caching and the Mongo store.
//
// The format is designed for round-trip fidelity:
// build → export → re-import produces an identical graph.
type Graph struct {
	Experiments []string `json:"experiments" bson:"experiments"`
	Nodes       []Node   `json:"nodes" bson:"nodes"`
	Edges       []Edge   `json:"edges" bson:"edges"`
}

// =============================================================================
// Node - Variant
// =============================================================================

// Node is one variant of a serialized graph. ID is the window sequence.
type Node struct {
	ID          string             `json:"id" bson:"id"`
	Ops         string             `json:"ops" bson:"ops"` // Edit signature, "" for the reference
	Depth       int                `json:"depth" bson:"depth"`
	Reference   bool               `json:"reference,omitempty" bson:"reference,omitempty"`
	RefAlign    string             `json:"ref_align,omitempty" bson:"ref_align,omitempty"`
	ReadAlign   string             `json:"read_align,omitempty" bson:"read_align,omitempty"`
	Frequencies map[string]float64 `json:"frequencies,omitempty" bson:"frequencies,omitempty"`
	Counts      map[string]int     `json:"counts,omitempty" bson:"counts,omitempty"`
}

// Frequency returns the largest per-experiment frequency of the node.
func (n *Node) Frequency() float64 {
	f := 0.0
	for _, v := range n.Frequencies {
		f = max(f, v)
	}
	return f
}

// =============================================================================
// Edge - Single-Edit Adjacency
// =============================================================================

// Edge is an undirected edge; From is the endpoint closer to the reference.
type Edge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
	Kind string `json:"kind" bson:"kind"`
}

// =============================================================================
// vgraph.Graph ↔ Graph Conversion
// =============================================================================

// FromVariantGraph converts a variant graph to its serialization format.
// Nodes keep the graph's canonical order.
func FromVariantGraph(g *vgraph.Graph) Graph {
	nodes := g.Nodes()
	edges := g.Edges()
	out := Graph{
		Experiments: g.Experiments(),
		Nodes:       make([]Node, len(nodes)),
		Edges:       make([]Edge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = Node{
			ID:          n.Sequence,
			Ops:         n.Signature,
			Depth:       n.Depth,
			Reference:   n.Reference,
			RefAlign:    n.RefAlign,
			ReadAlign:   n.ReadAlign,
			Frequencies: copyMap(n.Frequencies),
			Counts:      copyMap(n.Counts),
		}
	}
	for i, e := range edges {
		out.Edges[i] = Edge{From: e.From, To: e.To, Kind: string(e.Kind)}
	}
	return out
}

// ToVariantGraph converts a serialized graph back to a variant graph.
// Edit ops are parsed from the node signatures.
func ToVariantGraph(gj Graph) (*vgraph.Graph, error) {
	nodes := make([]*vgraph.Node, len(gj.Nodes))
	for i, nj := range gj.Nodes {
		ops, err := edit.ParseSignature(nj.Ops)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nj.ID, err)
		}
		nodes[i] = &vgraph.Node{
			Sequence:    nj.ID,
			RefAlign:    nj.RefAlign,
			ReadAlign:   nj.ReadAlign,
			Ops:         ops,
			Signature:   edit.Signature(ops),
			Depth:       edit.Units(ops),
			Reference:   nj.Reference,
			Frequencies: copyMap(nj.Frequencies),
			Counts:      copyMap(nj.Counts),
		}
	}
	edges := make([]vgraph.Edge, len(gj.Edges))
	for i, ej := range gj.Edges {
		kind, ok := vgraph.ParseEdgeKind(ej.Kind)
		if !ok {
			return nil, fmt.Errorf("edge %s→%s: unknown kind %q", ej.From, ej.To, ej.Kind)
		}
		edges[i] = vgraph.Edge{From: ej.From, To: ej.To, Kind: kind}
	}
	return vgraph.New(gj.Experiments, nodes, edges)
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

func copyMap[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
