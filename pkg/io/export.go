package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/variant"
)

const (
	colSequence  = "sequence"
	colCount     = "count"
	colFrequency = "frequency"
	colStdDev    = "freq_stddev"
	colEdits     = "edits"
	countPrefix  = "count_"
	freqPrefix   = "freq_"

	referenceTag = "#reference"
)

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// WriteVariants writes the variant table of an experiment to w. The
// reference window precedes the header on a "#reference" line.
func WriteVariants(exp *variant.Experiment, w io.Writer) error {
	tw := tsv.NewWriter(w)
	if exp.Reference != "" {
		tw.WriteString(referenceTag)
		tw.WriteString(exp.Reference)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	header := []string{colSequence, colCount, colFrequency, colStdDev}
	for _, lib := range exp.Libraries {
		header = append(header, countPrefix+lib)
	}
	for _, lib := range exp.Libraries {
		header = append(header, freqPrefix+lib)
	}
	header = append(header, colEdits)
	for _, h := range header {
		tw.WriteString(h)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}

	for _, v := range exp.Variants {
		tw.WriteString(v.Sequence)
		tw.WriteUint32(uint32(v.Count))
		tw.WriteString(formatFloat(v.Frequency))
		tw.WriteString(formatFloat(v.FrequencyStdDev))
		for _, c := range v.Counts {
			tw.WriteUint32(uint32(c))
		}
		for _, f := range v.Frequencies {
			tw.WriteString(formatFloat(f))
		}
		tw.WriteString(v.Signature())
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ExportVariants writes the variant table of an experiment to a file.
func ExportVariants(exp *variant.Experiment, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteVariants(exp, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadVariants decodes a table written by [WriteVariants]. The returned
// experiment carries names, the reference window, libraries and variants;
// alignments and configuration are not part of the table. Variant ops are
// parsed from the edits column. Tables without a "#reference" line take the
// reference from their unedited row, if any.
func ReadVariants(r io.Reader, name string) (*variant.Experiment, error) {
	br := bufio.NewReader(r)
	reference, err := readReference(br)
	if err != nil {
		return nil, err
	}
	tr := tsv.NewReader(br)
	tr.Comment = '#'

	header, err := tr.Reader.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read header")
	}
	header = slices.Clone(header)
	if len(header) < 5 || header[0] != colSequence || header[1] != colCount ||
		header[2] != colFrequency || header[3] != colStdDev || header[len(header)-1] != colEdits {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not a variant table: header %q", strings.Join(header, "\t"))
	}
	perLib := header[4 : len(header)-1]
	if len(perLib)%2 != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unbalanced per-library columns")
	}
	nLib := len(perLib) / 2
	exp := &variant.Experiment{Name: name, Reference: reference}
	for i := 0; i < nLib; i++ {
		lib, ok := strings.CutPrefix(perLib[i], countPrefix)
		if !ok || perLib[nLib+i] != freqPrefix+lib {
			return nil, errors.New(errors.ErrCodeInvalidInput, "unexpected library columns %q, %q", perLib[i], perLib[nLib+i])
		}
		exp.Libraries = append(exp.Libraries, lib)
	}

	for line := 2; ; line++ {
		rec, err := tr.Reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", line)
		}
		v, err := parseVariant(rec, nLib)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", line)
		}
		exp.Variants = append(exp.Variants, v)
	}
	i := slices.IndexFunc(exp.Variants, func(v variant.Variant) bool { return len(v.Ops) == 0 })
	switch {
	case i < 0:
	case exp.Reference == "":
		exp.Reference = exp.Variants[i].Sequence
	case exp.Reference != exp.Variants[i].Sequence:
		return nil, errors.InconsistentReference("table %s: reference %s but unedited row %s", name, exp.Reference, exp.Variants[i].Sequence)
	}
	return exp, nil
}

// readReference consumes leading "#" lines and returns the value of the
// "#reference" line, if present.
func readReference(br *bufio.Reader) (string, error) {
	var reference string
	for {
		b, err := br.Peek(1)
		if err != nil || b[0] != '#' {
			return reference, nil
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read preamble")
		}
		tag, value, _ := strings.Cut(strings.TrimRight(line, "\r\n"), "\t")
		if tag == referenceTag {
			if value == "" || strings.Trim(value, "ACGT") != "" {
				return "", errors.New(errors.ErrCodeInvalidInput, "invalid reference %q", value)
			}
			reference = value
		}
	}
}

func parseVariant(rec []string, nLib int) (variant.Variant, error) {
	var v variant.Variant
	var err error
	v.Sequence = rec[0]
	if v.Count, err = strconv.Atoi(rec[1]); err != nil {
		return v, err
	}
	if v.Frequency, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return v, err
	}
	if v.FrequencyStdDev, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return v, err
	}
	v.Counts = make([]int, nLib)
	v.Frequencies = make([]float64, nLib)
	for i := 0; i < nLib; i++ {
		if v.Counts[i], err = strconv.Atoi(rec[4+i]); err != nil {
			return v, err
		}
		if v.Frequencies[i], err = strconv.ParseFloat(rec[4+nLib+i], 64); err != nil {
			return v, err
		}
	}
	v.Ops, err = edit.ParseSignature(rec[len(rec)-1])
	return v, err
}

// ImportVariants reads a variant table file. The experiment is named after
// the file, without directory and extension.
func ImportVariants(path string) (*variant.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	name := path[strings.LastIndexAny(path, `/\`)+1:]
	name = strings.TrimSuffix(name, ".tsv")
	name = strings.TrimSuffix(name, ".variants")
	return ReadVariants(f, name)
}
