package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/traverse"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

const (
	idealLength = 1.0
	minDistance = 1e-6
)

type vec struct{ x, y float64 }

func (a vec) add(b vec) vec       { return vec{a.x + b.x, a.y + b.y} }
func (a vec) sub(b vec) vec       { return vec{a.x - b.x, a.y - b.y} }
func (a vec) scale(f float64) vec { return vec{a.x * f, a.y * f} }
func (a vec) norm() float64       { return math.Hypot(a.x, a.y) }

// simulation is one force-directed run over a graph.
type simulation struct {
	nodes  []*vgraph.Node
	adj    [][]int
	weight [][]float64
	stiff  []float64 // Step divisor per node
	pos    []vec
	disp   []vec
}

// result of a run.
type result struct {
	positions  []vec
	iterations int
	converged  bool
}

// newSimulation places the nodes of g. Placement depends only on the graph
// and the seed.
func newSimulation(g *vgraph.Graph, seed int64) *simulation {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.Sequence] = i
	}
	s := &simulation{
		nodes:  nodes,
		adj:    make([][]int, len(nodes)),
		weight: make([][]float64, len(nodes)),
		stiff:  make([]float64, len(nodes)),
		pos:    make([]vec, len(nodes)),
		disp:   make([]vec, len(nodes)),
	}
	for i, n := range nodes {
		for _, seq := range g.Neighbors(n.Sequence) {
			j := index[seq]
			s.adj[i] = append(s.adj[i], j)
			w := 1 + float64(min(n.Depth, nodes[j].Depth))
			s.weight[i] = append(s.weight[i], w)
			s.stiff[i] += 2 * w
		}
		s.stiff[i] = 2 * (s.stiff[i] + 2)
	}

	width := len(g.Reference().Sequence)
	spread := math.Sqrt(float64(len(nodes))) * idealLength
	for i, n := range nodes {
		if n.Reference {
			continue
		}
		s.pos[i] = initialPosition(n, seed, width, spread)
	}
	return s
}

// initialPosition places a node near its genomic position along x and its
// edit depth along y, with seeded jitter.
func initialPosition(n *vgraph.Node, seed int64, width int, spread float64) vec {
	rng := rand.New(rand.NewPCG(uint64(seed), farm.Fingerprint64([]byte(n.Sequence))))
	x := 0.0
	if mean, ok := edit.MeanPos(n.Ops); ok && width > 0 {
		half := float64(width) / 2
		x = (mean - half) / half * spread
	}
	x += (rng.Float64() - 0.5) * idealLength
	y := float64(n.Depth) * idealLength
	if rng.IntN(2) == 0 {
		y = -y
	}
	y += (rng.Float64() - 0.5) * idealLength
	return vec{x, y}
}

// forces computes the displacement of node i from the current positions.
func (s *simulation) forces(i int) vec {
	var d vec
	p := s.pos[i]
	for j, q := range s.pos {
		if j == i {
			continue
		}
		delta := p.sub(q)
		dist := delta.norm()
		if dist < minDistance {
			// Coincident nodes separate along x by index.
			delta = vec{float64(i - j), 0}
			dist = math.Abs(float64(i - j))
		}
		rep := idealLength * idealLength / (dist * dist)
		d = d.add(delta.scale(rep / dist))
	}
	for k, j := range s.adj[i] {
		delta := p.sub(s.pos[j])
		dist := delta.norm()
		if dist < minDistance {
			continue
		}
		att := s.weight[i][k] * dist * dist / idealLength
		d = d.sub(delta.scale(att / dist))
	}
	return d
}

// run iterates until the largest net force is below threshold or maxIter is
// reached. Node 0, the reference, stays at the origin.
//
// Each node moves by its force divided by its stiffness, capped by a
// temperature that cools linearly but never below threshold, so a run only
// converges at equilibrium.
func (s *simulation) run(ctx context.Context, maxIter int, threshold float64) (result, error) {
	n := len(s.nodes)
	res := result{}
	if n <= 1 {
		res.converged = true
		res.positions = s.pos
		return res, nil
	}

	chunks := min(runtime.NumCPU(), n)
	start := 0.1 * math.Sqrt(float64(n)) * idealLength
	for it := 0; it < maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return result{}, err
		}
		if err := traverse.Each(chunks, func(c int) error {
			for i := c * n / chunks; i < (c+1)*n/chunks; i++ {
				s.disp[i] = s.forces(i)
			}
			return nil
		}); err != nil {
			return result{}, err
		}

		largest := 0.0
		for i := 1; i < n; i++ {
			largest = max(largest, s.disp[i].norm())
		}
		if largest < threshold {
			res.converged = true
			break
		}

		temp := max(start*(1-float64(it)/float64(maxIter)), threshold)
		for i := 1; i < n; i++ {
			length := s.disp[i].norm()
			if length == 0 {
				continue
			}
			step := min(length/s.stiff[i], temp)
			s.pos[i] = s.pos[i].add(s.disp[i].scale(step / length))
		}
		res.iterations = it + 1
	}
	res.positions = s.pos
	return res, nil
}
