package variant

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
)

// Substitution modes of an experiment.
const (
	WithSubstitutions    = "with"
	WithoutSubstitutions = "without"
)

// Variant is one distinct repair outcome of an experiment.
type Variant struct {
	Sequence  string    `json:"sequence"`
	RefAlign  string    `json:"ref_align"`
	ReadAlign string    `json:"read_align"`
	Ops       []edit.Op `json:"-"`

	// Per-repeat values, indexed like Experiment.Libraries.
	Counts      []int     `json:"counts"`
	Frequencies []float64 `json:"frequencies"`

	Count           int     `json:"count"`
	Frequency       float64 `json:"frequency"`
	FrequencyStdDev float64 `json:"freq_stddev"`
}

// Signature returns the canonical edit signature of the variant.
func (v Variant) Signature() string { return edit.Signature(v.Ops) }

// Experiment is the merged variant list of one experiment's repeats.
type Experiment struct {
	Name       string    `json:"name"`
	Reference  string    `json:"reference"`
	Libraries  []string  `json:"libraries"`
	TotalReads []int     `json:"total_reads"`
	Variants   []Variant `json:"variants"`

	// Configuration echo, filled by the caller.
	DSBPos            int    `json:"dsb_pos"`
	Width             int    `json:"window_width"`
	ReverseComplement bool   `json:"reverse_complement"`
	LayoutGroup       string `json:"layout_group"`
	SubstitutionMode  string `json:"substitutions"`
}

// Find returns the variant with the given sequence.
func (e *Experiment) Find(seq string) (Variant, bool) {
	for _, v := range e.Variants {
		if v.Sequence == seq {
			return v, true
		}
	}
	return Variant{}, false
}

// Count returns the summed read count over all variants.
func (e *Experiment) Count() int {
	n := 0
	for _, v := range e.Variants {
		n += v.Count
	}
	return n
}

// Combine merges the tables of an experiment's repeat libraries.
//
// totals[i] is the total read count of library i and is the denominator of
// its per-repeat frequencies. Tables must agree on the reference window;
// empty tables are exempt.
func Combine(name string, tables []*Table, totals []int) (*Experiment, error) {
	if len(tables) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q: no libraries", name)
	}
	if len(tables) != len(totals) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q: %d tables but %d totals", name, len(tables), len(totals))
	}

	exp := &Experiment{
		Name:       name,
		Libraries:  make([]string, len(tables)),
		TotalReads: slices.Clone(totals),
	}
	refLib := ""
	for i, t := range tables {
		exp.Libraries[i] = t.Library
		if totals[i] <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q: library %q: total reads must be positive, got %d", name, t.Library, totals[i])
		}
		if totals[i] < t.Total() {
			return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q: library %q: total reads %d below counted reads %d", name, t.Library, totals[i], t.Total())
		}
		if t.Total() == 0 {
			continue
		}
		switch {
		case exp.Reference == "":
			exp.Reference, refLib = t.Reference(), t.Library
		case exp.Reference != t.Reference():
			return nil, errors.InconsistentReference("experiment %q: libraries %q and %q have different reference windows", name, refLib, t.Library)
		}
	}
	if exp.Reference == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "experiment %q: no usable reads in any library", name)
	}

	index := make(map[string]int)
	for i, t := range tables {
		for _, r := range t.rows {
			j, ok := index[r.Sequence]
			if !ok {
				j = len(exp.Variants)
				index[r.Sequence] = j
				exp.Variants = append(exp.Variants, Variant{
					Sequence:    r.Sequence,
					RefAlign:    r.RefAlign,
					ReadAlign:   r.ReadAlign,
					Ops:         edit.Classify(r.RefAlign, r.ReadAlign),
					Counts:      make([]int, len(tables)),
					Frequencies: make([]float64, len(tables)),
				})
			}
			v := &exp.Variants[j]
			v.Counts[i] += r.Count
			v.Count += r.Count
		}
	}

	for j := range exp.Variants {
		v := &exp.Variants[j]
		for i, c := range v.Counts {
			v.Frequencies[i] = float64(c) / float64(totals[i])
		}
		if len(v.Frequencies) > 1 {
			v.Frequency, v.FrequencyStdDev = stat.MeanStdDev(v.Frequencies, nil)
		} else {
			v.Frequency = v.Frequencies[0]
		}
	}

	slices.SortFunc(exp.Variants, func(a, b Variant) int {
		if c := cmp.Compare(b.Frequency, a.Frequency); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	return exp, nil
}
