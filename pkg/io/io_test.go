package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/variant"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
	"github.com/matzehuels/repairgraph/pkg/window"
)

const readsTSV = "ref_align\tread_align\tstrand\n" +
	"# comment\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCGGGGTTTT\t+\n" +
	"AAAACCCCGGGGTTTT\tAAAACCCCAGGGTTTT\t-\n"

func TestReadReads(t *testing.T) {
	reads, err := LoadReads(strings.NewReader(readsTSV), "r1")
	require.NoError(t, err)
	require.Len(t, reads, 2)
	assert.Equal(t, window.Read{RefAlign: "AAAACCCCGGGGTTTT", ReadAlign: "AAAACCCCGGGGTTTT", Strand: window.Forward, Library: "r1"}, reads[0])
	assert.Equal(t, window.Reverse, reads[1].Strand)
	assert.Equal(t, "AAAACCCCAGGGTTTT", reads[1].ReadAlign)
}

func TestReadReadsKeepsCase(t *testing.T) {
	in := "ref_align\tread_align\tstrand\naaaacccc\taaaacccc\t+\n"
	reads, err := LoadReads(strings.NewReader(in), "r1")
	require.NoError(t, err)
	require.Len(t, reads, 1)
	assert.Equal(t, "aaaacccc", reads[0].RefAlign)

	_, err = window.Extractor{DSBPos: 4, Width: 4}.Extract(reads[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMalformedAlignment))
}

func TestReadReadsColumnOrder(t *testing.T) {
	in := "strand\tread_align\tref_align\n+\tACGT\tAC-T\n"
	reads, err := LoadReads(strings.NewReader(in), "r1")
	require.NoError(t, err)
	require.Len(t, reads, 1)
	assert.Equal(t, "AC-T", reads[0].RefAlign)
	assert.Equal(t, "ACGT", reads[0].ReadAlign)
}

func TestReadReadsBadStrand(t *testing.T) {
	in := "ref_align\tread_align\tstrand\nACGT\tACGT\t?\n"
	_, err := LoadReads(strings.NewReader(in), "r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestReadReadsStop(t *testing.T) {
	stop := errors.New(errors.ErrCodeInternal, "stop")
	n, err := ReadReads(strings.NewReader(readsTSV), "r1", func(window.Read) error { return stop })
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, stop)
}

func TestImportReadsGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "r1.tsv")
	require.NoError(t, os.WriteFile(plain, []byte(readsTSV), 0644))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(readsTSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	gz := filepath.Join(dir, "r1.tsv.gz")
	require.NoError(t, os.WriteFile(gz, buf.Bytes(), 0644))

	a, err := ImportReads(plain, "r1")
	require.NoError(t, err)
	b, err := ImportReads(gz, "r1")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = ImportReads(filepath.Join(dir, "missing.tsv"), "r1")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.tsv.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))
	_, err = ImportReads(bad, "r1")
	assert.Error(t, err)
}

func experiment(t *testing.T) *variant.Experiment {
	t.Helper()
	ref := "CCCCGGGG"
	r1 := variant.NewTable("r1")
	r2 := variant.NewTable("r2")
	for _, read := range []string{ref, ref, ref, "CCCCAGGG"} {
		require.NoError(t, r1.Add(window.Window{RefAlign: ref, ReadAlign: read, Width: 8}))
	}
	for _, read := range []string{ref, "CCC-GGGG"} {
		require.NoError(t, r2.Add(window.Window{RefAlign: ref, ReadAlign: read, Width: 8}))
	}
	exp, err := variant.Combine("wt", []*variant.Table{r1, r2}, []int{4, 3})
	require.NoError(t, err)
	return exp
}

func TestWriteVariants(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVariants(experiment(t), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "#reference\tCCCCGGGG", lines[0])
	assert.Equal(t, "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tcount_r2\tfreq_r1\tfreq_r2\tedits", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "CCCCGGGG\t4\t"), lines[2])
	assert.True(t, strings.HasSuffix(lines[3], "\t4S:A") || strings.HasSuffix(lines[3], "\t3D"), lines[3])
}

func TestVariantsRoundTrip(t *testing.T) {
	exp := experiment(t)
	path := filepath.Join(t.TempDir(), "wt.variants.tsv")
	require.NoError(t, ExportVariants(exp, path))

	back, err := ImportVariants(path)
	require.NoError(t, err)
	assert.Equal(t, "wt", back.Name)
	assert.Equal(t, exp.Libraries, back.Libraries)
	assert.Equal(t, exp.Reference, back.Reference)
	require.Len(t, back.Variants, len(exp.Variants))
	for i, v := range exp.Variants {
		w := back.Variants[i]
		assert.Equal(t, v.Sequence, w.Sequence)
		assert.Equal(t, v.Count, w.Count)
		assert.Equal(t, v.Counts, w.Counts)
		assert.Equal(t, v.Frequency, w.Frequency)
		assert.Equal(t, v.Frequencies, w.Frequencies)
		assert.Equal(t, v.FrequencyStdDev, w.FrequencyStdDev)
		assert.Equal(t, v.Signature(), w.Signature())
	}
}

func TestVariantsRoundTripWithoutReferenceRow(t *testing.T) {
	ref := "CCCCGGGG"
	tbl := variant.NewTable("r1")
	for _, read := range []string{"CCC-GGGG", "CCCCAGGG"} {
		require.NoError(t, tbl.Add(window.Window{RefAlign: ref, ReadAlign: read, Width: 8}))
	}
	exp, err := variant.Combine("wt", []*variant.Table{tbl}, []int{tbl.Total()})
	require.NoError(t, err)
	_, found := exp.Find(ref)
	require.False(t, found)

	var buf bytes.Buffer
	require.NoError(t, WriteVariants(exp, &buf))
	back, err := ReadVariants(&buf, "wt")
	require.NoError(t, err)
	assert.Equal(t, ref, back.Reference)
	require.Len(t, back.Variants, 2)

	g, err := vgraph.Build([]*variant.Experiment{back})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, ref, g.Reference().Sequence)

	// Mixing it with a table that does carry the reference row is consistent.
	other := experiment(t)
	other.Name = "ko"
	g, err = vgraph.Build([]*variant.Experiment{back, other})
	require.NoError(t, err)
	assert.Equal(t, ref, g.Reference().Sequence)
}

func TestReadVariantsWithoutPreamble(t *testing.T) {
	in := "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r1\tedits\n" +
		"CCCCAGGG\t1\t0.25\t0\t1\t0.25\t4S:A\n" +
		"CCCCGGGG\t3\t0.75\t0\t3\t0.75\t\n"
	exp, err := ReadVariants(strings.NewReader(in), "wt")
	require.NoError(t, err)
	assert.Equal(t, "CCCCGGGG", exp.Reference)
	assert.Equal(t, []string{"r1"}, exp.Libraries)
	require.Len(t, exp.Variants, 2)
	assert.Equal(t, "4S:A", exp.Variants[0].Signature())
}

func TestReadVariantsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"Empty", ""},
		{"WrongHeader", "a\tb\tc\td\te\n"},
		{"Unbalanced", "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tedits\n"},
		{"MismatchedLibs", "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r2\tedits\n"},
		{"BadCount", "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r1\tedits\nA\tx\t1\t0\t1\t1\t\n"},
		{"BadEdits", "sequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r1\tedits\nA\t1\t1\t0\t1\t1\t9Q\n"},
		{"BadReference", "#reference\tCCNN\nsequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r1\tedits\n"},
		{"ReferenceMismatch", "#reference\tCCCC\nsequence\tcount\tfrequency\tfreq_stddev\tcount_r1\tfreq_r1\tedits\nGGGG\t1\t1\t0\t1\t1\t\n"},
		{"OnlyPreamble", "#reference\tCCCC\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVariants(strings.NewReader(tt.in), "x")
			assert.Error(t, err)
		})
	}
}
