package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
)

const ref = "AAAACCCCGGGGTTTT" // 16 bases, break between 7 and 8

func TestExtractZeroEdits(t *testing.T) {
	w, err := Extract(ref, ref, 8, 8, false)
	require.NoError(t, err)
	assert.Equal(t, "CCCCGGGG", w.Reference())
	assert.Equal(t, w.Reference(), w.Sequence())
	assert.Empty(t, w.Ops())
	assert.Equal(t, 8, w.Width)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		refAlign  string
		readAlign string
		normalize bool
		wantRead  string
		wantOps   string
	}{
		{
			name:      "substitution at break",
			refAlign:  ref,
			readAlign: "AAAACCCCAGGGTTTT",
			wantRead:  "CCCCAGGG",
			wantOps:   "4S:A",
		},
		{
			name:      "substitution normalized",
			refAlign:  ref,
			readAlign: "AAAACCCCAGGGTTTT",
			normalize: true,
			wantRead:  "CCCCGGGG",
			wantOps:   "",
		},
		{
			name:      "insertion at break kept",
			refAlign:  "AAAACCCC--GGGGTTTT",
			readAlign: "AAAACCCCTTGGGGTTTT",
			wantRead:  "CCCCTTGGGG",
			wantOps:   "4I:TT",
		},
		{
			name:      "insertion at window start dropped",
			refAlign:  "AAAA-CCCCGGGGTTTT",
			readAlign: "AAAATCCCCGGGGTTTT",
			wantRead:  "CCCCGGGG",
			wantOps:   "",
		},
		{
			name:      "insertion at window end dropped",
			refAlign:  "AAAACCCCGGGG-TTTT",
			readAlign: "AAAACCCCGGGGATTTT",
			wantRead:  "CCCCGGGG",
			wantOps:   "",
		},
		{
			name:      "deletion across break",
			refAlign:  ref,
			readAlign: "AAAACCC--GGGTTTT",
			wantRead:  "CCCGGG",
			wantOps:   "3D,4D",
		},
		{
			name:      "deletion survives normalization",
			refAlign:  ref,
			readAlign: "AAAACCC--GGGTTTA",
			normalize: true,
			wantRead:  "CCCGGG",
			wantOps:   "3D,4D",
		},
		{
			name:      "read shorter than window",
			refAlign:  ref,
			readAlign: "-------CGGGGTTTT",
			wantRead:  "CGGGG",
			wantOps:   "0D,1D,2D",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Extract(tt.refAlign, tt.readAlign, 8, 8, tt.normalize)
			require.NoError(t, err)
			assert.Equal(t, "CCCCGGGG", w.Reference())
			assert.Equal(t, len(w.RefAlign), len(w.ReadAlign))
			assert.Equal(t, tt.wantRead, w.Sequence())
			assert.Equal(t, tt.wantOps, edit.Signature(w.Ops()))
		})
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name      string
		refAlign  string
		readAlign string
		dsb       int
		width     int
		code      errors.Code
	}{
		{"length mismatch", ref, ref[:10], 8, 8, errors.ErrCodeMalformedAlignment},
		{"invalid alphabet", ref, "AAAACCCCNGGGTTTT", 8, 8, errors.ErrCodeMalformedAlignment},
		{"window past end", ref, ref, 14, 8, errors.ErrCodeMalformedAlignment},
		{"window before start", ref, ref, 2, 8, errors.ErrCodeMalformedAlignment},
		{"odd width", ref, ref, 8, 7, errors.ErrCodeInvalidConfig},
		{"zero width", ref, ref, 8, 0, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.refAlign, tt.readAlign, tt.dsb, tt.width, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestExtractor(t *testing.T) {
	e := Extractor{DSBPos: 8, Width: 8, Normalize: true}
	require.NoError(t, e.Validate())
	w, err := e.Extract(Read{RefAlign: ref, ReadAlign: "AAAACCCCAGGGTTTT", Strand: Forward, Library: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "CCCCGGGG", w.Sequence())

	assert.Error(t, Extractor{DSBPos: 2, Width: 8}.Validate())
	assert.Error(t, Extractor{DSBPos: 8, Width: 3}.Validate())
}

func TestParseStrand(t *testing.T) {
	for in, want := range map[string]Strand{"+": Forward, "forward": Forward, "": Forward, "-": Reverse, "reverse": Reverse} {
		got, err := ParseStrand(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrand("x")
	assert.Error(t, err)
	assert.Equal(t, "-", Reverse.String())
}
