package edit

import "slices"

// Reduction is an op list obtained by removing one elementary unit.
type Reduction struct {
	Ops       []Op
	Signature string
	Removed   Op // The removed unit, as a single-unit op
}

// Reductions returns every distinct op list reachable from ops by removing
// exactly one elementary unit: one substitution, one deleted base, or one
// inserted base. Removing the last base of an insertion drops the op.
// Results are ordered by the position of the removed unit and deduplicated
// by signature (removing either base of "AA" yields the same list).
func Reductions(ops []Op) []Reduction {
	var out []Reduction
	seen := make(map[string]bool)
	add := func(r []Op, removed Op) {
		r = Canonical(r)
		sig := Signature(r)
		if seen[sig] {
			return
		}
		seen[sig] = true
		out = append(out, Reduction{Ops: r, Signature: sig, Removed: removed})
	}

	for i, o := range ops {
		if o.Kind != Insertion || len(o.Bases) == 1 {
			r := slices.Delete(slices.Clone(ops), i, i+1)
			add(r, o)
			continue
		}
		for j := 0; j < len(o.Bases); j++ {
			r := slices.Clone(ops)
			r[i].Bases = o.Bases[:j] + o.Bases[j+1:]
			add(r, Op{Pos: o.Pos, Kind: Insertion, Bases: o.Bases[j : j+1]})
		}
	}
	return out
}
