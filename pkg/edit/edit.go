package edit

import (
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/repairgraph/pkg/errors"
)

// Gap is the alignment gap character.
const Gap = '-'

// Kind classifies an alignment column or an edit operation.
type Kind uint8

const (
	// Match is a column where reference and read carry the same base.
	Match Kind = iota
	// Substitution is a column where both sides carry different bases.
	Substitution
	// Insertion is a column with a gap in the reference.
	Insertion
	// Deletion is a column with a gap in the read.
	Deletion
)

var kindNames = [...]string{
	Match:        "match",
	Substitution: "substitution",
	Insertion:    "insertion",
	Deletion:     "deletion",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

func (k Kind) letter() byte {
	switch k {
	case Substitution:
		return 'S'
	case Insertion:
		return 'I'
	case Deletion:
		return 'D'
	}
	return 'M'
}

func isBase(c byte) bool {
	return c == 'A' || c == 'C' || c == 'G' || c == 'T'
}

// Validate checks that ref and read form a usable alignment: equal length,
// alphabet {A,C,G,T,-}, and no column that is a gap on both sides.
func Validate(ref, read string) error {
	if len(ref) != len(read) {
		return errors.MalformedAlignment("alignment length mismatch: ref %d, read %d", len(ref), len(read))
	}
	for i := 0; i < len(ref); i++ {
		r, q := ref[i], read[i]
		if r != Gap && !isBase(r) {
			return errors.MalformedAlignment("invalid reference character %q at column %d", r, i)
		}
		if q != Gap && !isBase(q) {
			return errors.MalformedAlignment("invalid read character %q at column %d", q, i)
		}
		if r == Gap && q == Gap {
			return errors.MalformedAlignment("gap on both sides at column %d", i)
		}
	}
	return nil
}

// ColumnKind classifies one alignment column. The column must be valid.
func ColumnKind(r, q byte) Kind {
	switch {
	case r == Gap:
		return Insertion
	case q == Gap:
		return Deletion
	case r != q:
		return Substitution
	}
	return Match
}

// NormalizeSubstitutions returns read with every substitution column
// rewritten to the reference base. Gap columns are left untouched.
func NormalizeSubstitutions(ref, read string) string {
	var b []byte
	for i := 0; i < len(read) && i < len(ref); i++ {
		if ColumnKind(ref[i], read[i]) != Substitution {
			continue
		}
		if b == nil {
			b = []byte(read)
		}
		b[i] = ref[i]
	}
	if b == nil {
		return read
	}
	return string(b)
}

// Ungap removes gap characters.
func Ungap(s string) string {
	if strings.IndexByte(s, Gap) < 0 {
		return s
	}
	return strings.ReplaceAll(s, string(Gap), "")
}

// Op is one edit operation relative to the reference window.
type Op struct {
	Pos   int    // Reference bases preceding the op
	Kind  Kind   // Substitution, Insertion or Deletion
	Bases string // Read base(s); empty for deletions
}

// Units returns the number of elementary units in the op.
func (o Op) Units() int {
	if o.Kind == Insertion {
		return len(o.Bases)
	}
	return 1
}

// String formats the op compactly: "12S:T", "12D", "12I:AC".
func (o Op) String() string {
	s := strconv.Itoa(o.Pos) + string(o.Kind.letter())
	if o.Kind != Deletion {
		s += ":" + o.Bases
	}
	return s
}

// ParseOp is the inverse of [Op.String].
func ParseOp(s string) (Op, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return Op{}, errors.New(errors.ErrCodeInvalidInput, "invalid edit op %q", s)
	}
	pos, err := strconv.Atoi(s[:i])
	if err != nil {
		return Op{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid edit op %q", s)
	}
	op := Op{Pos: pos}
	rest := s[i+1:]
	switch s[i] {
	case 'D':
		op.Kind = Deletion
		if rest != "" {
			return Op{}, errors.New(errors.ErrCodeInvalidInput, "invalid edit op %q", s)
		}
		return op, nil
	case 'S':
		op.Kind = Substitution
	case 'I':
		op.Kind = Insertion
	default:
		return Op{}, errors.New(errors.ErrCodeInvalidInput, "invalid edit op %q", s)
	}
	if !strings.HasPrefix(rest, ":") || len(rest) < 2 {
		return Op{}, errors.New(errors.ErrCodeInvalidInput, "invalid edit op %q", s)
	}
	op.Bases = rest[1:]
	return op, nil
}

// Classify returns the edit ops of a valid alignment in column order, in
// canonical form (see [Canonical]).
func Classify(ref, read string) []Op {
	var ops []Op
	pos := 0
	for i := 0; i < len(ref); i++ {
		switch ColumnKind(ref[i], read[i]) {
		case Match:
			pos++
		case Substitution:
			ops = append(ops, Op{Pos: pos, Kind: Substitution, Bases: string(read[i])})
			pos++
		case Deletion:
			ops = append(ops, Op{Pos: pos, Kind: Deletion})
			pos++
		case Insertion:
			if n := len(ops); n > 0 && ops[n-1].Kind == Insertion && ops[n-1].Pos == pos {
				ops[n-1].Bases += string(read[i])
			} else {
				ops = append(ops, Op{Pos: pos, Kind: Insertion, Bases: string(read[i])})
			}
		}
	}
	return Canonical(ops)
}

// Canonical rewrites ops in place so that equal sequences get equal op
// lists regardless of column order around a deletion run: an insertion that
// directly follows deleted bases moves to the start of the run, and
// insertions meeting at one position are joined in read order.
//
//	"ACG-T" / "AC-TT"  2D,3I:T  ->  2I:T,2D
func Canonical(ops []Op) []Op {
	for i := 0; i < len(ops); i++ {
		if ops[i].Kind != Insertion {
			continue
		}
		j := i
		for j > 0 && ops[j-1].Kind == Deletion && ops[j-1].Pos == ops[j].Pos-1 {
			ops[j-1], ops[j] = ops[j], ops[j-1]
			ops[j-1].Pos = ops[j].Pos
			j--
		}
		if j > 0 && ops[j-1].Kind == Insertion && ops[j-1].Pos == ops[j].Pos {
			ops[j-1].Bases += ops[j].Bases
			ops = slices.Delete(ops, j, j+1)
			i--
		}
	}
	return ops
}

// Units returns the edit depth of an op list: the number of elementary units.
func Units(ops []Op) int {
	n := 0
	for _, o := range ops {
		n += o.Units()
	}
	return n
}

// Signature returns the canonical string form of an op list.
// The reference (no ops) has the empty signature.
func Signature(ops []Op) string {
	if len(ops) == 0 {
		return ""
	}
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = o.String()
	}
	return strings.Join(parts, ",")
}

// ParseSignature is the inverse of [Signature].
func ParseSignature(sig string) ([]Op, error) {
	if sig == "" {
		return nil, nil
	}
	fields := strings.Split(sig, ",")
	ops := make([]Op, len(fields))
	for i, f := range fields {
		op, err := ParseOp(f)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	return ops, nil
}

// Count returns the number of ops of each kind.
func Count(ops []Op) (subs, ins, dels int) {
	for _, o := range ops {
		switch o.Kind {
		case Substitution:
			subs++
		case Insertion:
			ins++
		case Deletion:
			dels++
		}
	}
	return
}

// MeanPos returns the mean reference position of ops, or ok=false when
// there are none.
func MeanPos(ops []Op) (mean float64, ok bool) {
	if len(ops) == 0 {
		return 0, false
	}
	sum := 0
	for _, o := range ops {
		sum += o.Pos
	}
	return float64(sum) / float64(len(ops)), true
}
