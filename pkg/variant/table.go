package variant

import (
	"slices"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/window"
)

// Row is one finalized (sequence, count) entry of a table.
type Row struct {
	Sequence  string `json:"sequence"`
	Count     int    `json:"count"`
	RefAlign  string `json:"ref_align"`  // Representative reference alignment
	ReadAlign string `json:"read_align"` // Representative read alignment
}

// Table accumulates windowed reads of one library by sequence.
//
// The zero value is not usable; use NewTable. A Table is not safe for
// concurrent use.
type Table struct {
	Library   string
	reference string
	rows      []Row
	index     map[string]int // sequence -> rows index
	total     int
}

// NewTable creates an empty table for a library.
func NewTable(library string) *Table {
	return &Table{Library: library, index: make(map[string]int)}
}

// Reference returns the reference window shared by every added window, or
// "" while the table is empty.
func (t *Table) Reference() string { return t.reference }

// Total returns the number of reads added.
func (t *Table) Total() int { return t.total }

// Len returns the number of distinct sequences.
func (t *Table) Len() int { return len(t.rows) }

// Add counts one window. It returns an INCONSISTENT_REFERENCE error when the
// window's reference differs from the table's.
func (t *Table) Add(w window.Window) error {
	return t.add(w.Reference(), Row{Sequence: w.Sequence(), Count: 1, RefAlign: w.RefAlign, ReadAlign: w.ReadAlign})
}

func (t *Table) add(ref string, r Row) error {
	if err := t.checkReference(ref); err != nil {
		return err
	}
	if i, ok := t.index[r.Sequence]; ok {
		t.rows[i].Count += r.Count
	} else {
		t.index[r.Sequence] = len(t.rows)
		t.rows = append(t.rows, r)
	}
	t.total += r.Count
	return nil
}

func (t *Table) checkReference(ref string) error {
	if t.reference == "" && t.total == 0 {
		t.reference = ref
		return nil
	}
	if ref != t.reference {
		return errors.InconsistentReference("library %q: reference window %q differs from %q", t.Library, ref, t.reference)
	}
	return nil
}

// Merge folds other into t. Sequences already in t keep their position and
// representative; new sequences are appended in other's first-seen order.
func (t *Table) Merge(other *Table) error {
	if other == nil || other.total == 0 {
		return nil
	}
	if err := t.checkReference(other.reference); err != nil {
		return err
	}
	for _, r := range other.rows {
		if err := t.add(other.reference, r); err != nil {
			return err
		}
	}
	return nil
}

// Finalize returns the rows sorted by descending count, ties by first-seen
// order. The table remains usable.
func (t *Table) Finalize() []Row {
	rows := slices.Clone(t.rows)
	slices.SortStableFunc(rows, func(a, b Row) int { return b.Count - a.Count })
	return rows
}

// FromRows rebuilds a table from finalized rows, for example after a cache
// round trip. Row order becomes first-seen order.
func FromRows(library, reference string, rows []Row) (*Table, error) {
	t := NewTable(library)
	for _, r := range rows {
		if r.Count <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "library %q: sequence %q has count %d", library, r.Sequence, r.Count)
		}
		if _, dup := t.index[r.Sequence]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "library %q: duplicate sequence %q", library, r.Sequence)
		}
		if err := t.add(reference, r); err != nil {
			return nil, err
		}
	}
	if t.total == 0 {
		t.reference = reference
	}
	return t, nil
}
