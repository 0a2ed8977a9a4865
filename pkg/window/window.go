// Package window extracts fixed-width alignment windows centered on a
// double-strand break.
//
// Windowing happens in reference coordinates: the window covers reference
// positions [dsbPos-width/2, dsbPos+width/2), counting only non-gap reference
// columns. Insertion columns belong to the reference position of the next
// reference base and are kept when that position lies strictly inside the
// window, so an insertion exactly at the break is always retained while
// insertions hugging the window edges are not.
package window

import (
	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
)

// Strand is the sequencing strand of a read.
type Strand byte

const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

// ParseStrand accepts "+", "-", "forward" and "reverse".
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+", "forward", "":
		return Forward, nil
	case "-", "reverse":
		return Reverse, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "invalid strand %q", s)
}

// String returns "+" or "-".
func (s Strand) String() string { return string(rune(s)) }

// Read is one normalized aligned-read record.
type Read struct {
	RefAlign  string
	ReadAlign string
	Strand    Strand
	Library   string
}

// Window is the part of an alignment that falls inside the break window.
type Window struct {
	RefAlign  string // Reference alignment columns inside the window
	ReadAlign string // Read alignment columns inside the window
	Width     int    // Window width in reference bases
}

// Reference returns the gap-free reference window. Its length is Width.
func (w Window) Reference() string { return edit.Ungap(w.RefAlign) }

// Sequence returns the gap-collapsed read window, the variant identity.
func (w Window) Sequence() string { return edit.Ungap(w.ReadAlign) }

// Ops classifies the window's columns into edit ops.
func (w Window) Ops() []edit.Op { return edit.Classify(w.RefAlign, w.ReadAlign) }

// Extractor holds the experiment-level windowing configuration.
type Extractor struct {
	DSBPos    int  // Break position as a 0-based reference offset
	Width     int  // Window width, positive and even
	Normalize bool // Rewrite substitutions to matches before windowing
}

// Validate checks the window configuration.
func (e Extractor) Validate() error {
	if e.Width <= 0 || e.Width%2 != 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "window width must be positive and even, got %d", e.Width)
	}
	if e.DSBPos-e.Width/2 < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "window [%d,%d) starts before the reference", e.DSBPos-e.Width/2, e.DSBPos+e.Width/2)
	}
	return nil
}

// Extract windows one read.
func (e Extractor) Extract(r Read) (Window, error) {
	return Extract(r.RefAlign, r.ReadAlign, e.DSBPos, e.Width, e.Normalize)
}

// Extract returns the window of the alignment centered on dsbPos.
//
// It fails with a MALFORMED_ALIGNMENT error when the alignment strings
// differ in length, contain characters outside {A,C,G,T,-}, or do not cover
// the whole window with reference positions.
func Extract(refAlign, readAlign string, dsbPos, width int, normalize bool) (Window, error) {
	if width <= 0 || width%2 != 0 {
		return Window{}, errors.New(errors.ErrCodeInvalidConfig, "window width must be positive and even, got %d", width)
	}
	if err := edit.Validate(refAlign, readAlign); err != nil {
		return Window{}, err
	}
	if normalize {
		readAlign = edit.NormalizeSubstitutions(refAlign, readAlign)
	}

	start, end := dsbPos-width/2, dsbPos+width/2
	if start < 0 {
		return Window{}, errors.MalformedAlignment("window [%d,%d) starts before the reference", start, end)
	}

	first, last := -1, -1 // column range [first, last)
	pos := 0
	for i := 0; i < len(refAlign); i++ {
		if refAlign[i] == edit.Gap {
			continue
		}
		if pos == start {
			first = i
		}
		pos++
		if pos == end {
			last = i + 1
			break
		}
	}
	if first < 0 || last < 0 {
		return Window{}, errors.MalformedAlignment("alignment covers %d reference bases, window [%d,%d) needs %d", pos, start, end, end)
	}

	return Window{
		RefAlign:  refAlign[first:last],
		ReadAlign: readAlign[first:last],
		Width:     width,
	}, nil
}
