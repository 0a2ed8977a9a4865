package vgraph

import (
	"maps"
	"slices"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
)

// EdgeKind labels an edge with the elementary edit separating its endpoints.
type EdgeKind string

const (
	KindSubstitution EdgeKind = "substitution"
	KindInsertion    EdgeKind = "insertion"
	KindDeletion     EdgeKind = "deletion"
	// KindPath joins a node without a one-step neighbor closer to the
	// reference directly to the reference.
	KindPath EdgeKind = "path"
)

// ParseEdgeKind is the inverse of the EdgeKind string values.
func ParseEdgeKind(s string) (EdgeKind, bool) {
	switch k := EdgeKind(s); k {
	case KindSubstitution, KindInsertion, KindDeletion, KindPath:
		return k, true
	}
	return "", false
}

func edgeKindOf(k edit.Kind) EdgeKind {
	switch k {
	case edit.Substitution:
		return KindSubstitution
	case edit.Insertion:
		return KindInsertion
	case edit.Deletion:
		return KindDeletion
	}
	return KindPath
}

// Node is one variant sequence of the graph.
type Node struct {
	Sequence  string    // Gap-collapsed window sequence, the node identity
	RefAlign  string    // Representative reference alignment
	ReadAlign string    // Representative read alignment
	Ops       []edit.Op // Edit ops relative to the reference window
	Signature string    // edit.Signature(Ops)
	Depth     int       // edit.Units(Ops)
	Reference bool

	// Per-experiment aggregate values. Experiments without the variant have
	// no entry.
	Frequencies map[string]float64
	Counts      map[string]int
}

// Edge is an undirected edge. From is the endpoint closer to the reference.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is an immutable variant graph.
//
// The zero value is not usable; use [Build] or [New].
type Graph struct {
	reference   string
	experiments []string
	nodes       []*Node
	index       map[string]int // sequence -> nodes index
	edges       []Edge
	adj         [][]int
}

// Reference returns the reference node.
func (g *Graph) Reference() *Node { return g.nodes[0] }

// Experiments returns the names of the experiments covered by the graph.
func (g *Graph) Experiments() []string { return slices.Clone(g.experiments) }

// Nodes returns the nodes in deterministic order, reference first.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Node returns the node with the given sequence.
func (g *Graph) Node(seq string) (*Node, bool) {
	i, ok := g.index[seq]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Neighbors returns the sequences adjacent to seq, in node order.
func (g *Graph) Neighbors(seq string) []string {
	i, ok := g.index[seq]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[i]))
	for k, j := range g.adj[i] {
		out[k] = g.nodes[j].Sequence
	}
	return out
}

// Degree returns the number of edges incident to seq.
func (g *Graph) Degree(seq string) int {
	if i, ok := g.index[seq]; ok {
		return len(g.adj[i])
	}
	return 0
}

// Validate checks that every node is reachable from the reference.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 || !g.nodes[0].Reference {
		return errors.DisconnectedGraph("graph has no reference node")
	}
	seen := make([]bool, len(g.nodes))
	seen[0] = true
	queue := []int{0}
	reached := 1
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, j := range g.adj[i] {
			if !seen[j] {
				seen[j] = true
				reached++
				queue = append(queue, j)
			}
		}
	}
	if reached == len(g.nodes) {
		return nil
	}
	for i, ok := range seen {
		if !ok {
			return errors.DisconnectedGraph("node %q (%s) is unreachable from the reference; %d of %d nodes reached",
				g.nodes[i].Sequence, g.nodes[i].Signature, reached, len(g.nodes))
		}
	}
	return nil
}

// New assembles a graph from explicit nodes and edges, for example when
// decoding a serialized graph. Exactly one node must be the reference.
// Edges are checked for known endpoints and deduplicated.
func New(experiments []string, nodes []*Node, edges []Edge) (*Graph, error) {
	g := &Graph{experiments: slices.Clone(experiments), index: make(map[string]int, len(nodes))}
	var ref *Node
	for _, n := range nodes {
		if n.Reference {
			if ref != nil {
				return nil, errors.New(errors.ErrCodeInvalidInput, "graph has two reference nodes: %q and %q", ref.Sequence, n.Sequence)
			}
			ref = n
		}
		if _, dup := g.index[n.Sequence]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate node %q", n.Sequence)
		}
		g.index[n.Sequence] = -1
	}
	if ref == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph has no reference node")
	}
	g.reference = ref.Sequence
	g.setNodes(nodes)
	for _, e := range edges {
		i, ok := g.index[e.From]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %q-%q: unknown node %q", e.From, e.To, e.From)
		}
		j, ok := g.index[e.To]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %q-%q: unknown node %q", e.From, e.To, e.To)
		}
		g.addEdge(i, j, e.Kind)
	}
	return g, nil
}

// setNodes sorts nodes into canonical order and rebuilds the index.
func (g *Graph) setNodes(nodes []*Node) {
	slices.SortFunc(nodes, compareNodes)
	g.nodes = nodes
	g.adj = make([][]int, len(nodes))
	clear(g.index)
	for i, n := range nodes {
		g.index[n.Sequence] = i
		if n.Frequencies == nil {
			n.Frequencies = map[string]float64{}
		}
		if n.Counts == nil {
			n.Counts = map[string]int{}
		}
	}
}

func compareNodes(a, b *Node) int {
	switch {
	case a.Reference != b.Reference:
		if a.Reference {
			return -1
		}
		return 1
	case a.Depth != b.Depth:
		return a.Depth - b.Depth
	case a.Sequence < b.Sequence:
		return -1
	case a.Sequence > b.Sequence:
		return 1
	}
	return 0
}

// addEdge inserts an edge between node indexes i and j, oriented from the
// shallower node. Self loops and repeated pairs are ignored.
func (g *Graph) addEdge(i, j int, kind EdgeKind) bool {
	if i == j || slices.Contains(g.adj[i], j) {
		return false
	}
	if g.nodes[j].Depth < g.nodes[i].Depth || (g.nodes[j].Depth == g.nodes[i].Depth && j < i) {
		i, j = j, i
	}
	g.edges = append(g.edges, Edge{From: g.nodes[i].Sequence, To: g.nodes[j].Sequence, Kind: kind})
	g.adj[i] = insertSorted(g.adj[i], j)
	g.adj[j] = insertSorted(g.adj[j], i)
	return true
}

func insertSorted(s []int, v int) []int {
	k, _ := slices.BinarySearch(s, v)
	return slices.Insert(s, k, v)
}

// Summary returns node counts per edit depth.
func (g *Graph) Summary() map[int]int {
	out := make(map[int]int)
	for _, n := range g.nodes {
		out[n.Depth]++
	}
	return out
}

// Depths returns the distinct edit depths in ascending order.
func (g *Graph) Depths() []int {
	return slices.Sorted(maps.Keys(g.Summary()))
}
