package vgraph

import (
	"runtime"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/traverse"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

// Build constructs the variant graph over the union of the experiments'
// variants. All experiments must share one reference window.
//
// Node ops are classified from the representative alignment. Variants read
// back from a table carry no alignment; their parsed ops are used instead.
func Build(experiments []*variant.Experiment) (*Graph, error) {
	if len(experiments) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no experiments to build a graph from")
	}
	ref := experiments[0].Reference
	if ref == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q has no reference window", experiments[0].Name)
	}
	for _, e := range experiments[1:] {
		if e.Reference != ref {
			return nil, errors.InconsistentReference("experiments %q and %q have different reference windows", experiments[0].Name, e.Name)
		}
	}

	g := &Graph{reference: ref, index: make(map[string]int)}
	refNode := &Node{Sequence: ref, RefAlign: ref, ReadAlign: ref, Reference: true}
	bySeq := map[string]*Node{ref: refNode}
	nodes := []*Node{refNode}
	for _, e := range experiments {
		g.experiments = append(g.experiments, e.Name)
		for _, v := range e.Variants {
			n, ok := bySeq[v.Sequence]
			if !ok {
				ops := v.Ops
				if v.RefAlign != "" {
					ops = edit.Classify(v.RefAlign, v.ReadAlign)
				}
				n = &Node{
					Sequence:  v.Sequence,
					RefAlign:  v.RefAlign,
					ReadAlign: v.ReadAlign,
					Ops:       ops,
					Signature: edit.Signature(ops),
					Depth:     edit.Units(ops),
				}
				bySeq[v.Sequence] = n
				nodes = append(nodes, n)
			}
			if n.Frequencies == nil {
				n.Frequencies = make(map[string]float64)
				n.Counts = make(map[string]int)
			}
			n.Frequencies[e.Name] = v.Frequency
			n.Counts[e.Name] = v.Count
		}
	}
	g.setNodes(nodes)

	if err := g.link(); err != nil {
		return nil, err
	}
	return g, nil
}

type match struct {
	node int
	kind EdgeKind
}

// link adds single-edit edges and implicit path edges.
func (g *Graph) link() error {
	bySig := make(map[uint64][]int, len(g.nodes))
	for i, n := range g.nodes {
		h := farm.Fingerprint64([]byte(n.Signature))
		bySig[h] = append(bySig[h], i)
	}

	// Reductions only read the index; each chunk writes its own slots.
	found := make([][]match, len(g.nodes))
	chunks := min(runtime.NumCPU(), len(g.nodes))
	err := traverse.Each(chunks, func(c int) error {
		lo, hi := c*len(g.nodes)/chunks, (c+1)*len(g.nodes)/chunks
		for i := lo; i < hi; i++ {
			for _, r := range edit.Reductions(g.nodes[i].Ops) {
				for _, j := range bySig[farm.Fingerprint64([]byte(r.Signature))] {
					if g.nodes[j].Signature == r.Signature {
						found[i] = append(found[i], match{node: j, kind: edgeKindOf(r.Removed.Kind)})
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "compute reductions")
	}

	for i, ms := range found {
		closer := false
		for _, m := range ms {
			g.addEdge(m.node, i, m.kind)
			if g.nodes[m.node].Depth == g.nodes[i].Depth-1 {
				closer = true
			}
		}
		if g.nodes[i].Depth > 0 && !closer {
			g.addEdge(0, i, KindPath)
		}
	}
	return g.Validate()
}
