package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/window"
)

// readRow is one input line.
type readRow struct {
	RefAlign  string `tsv:"ref_align"`
	ReadAlign string `tsv:"read_align"`
	Strand    string `tsv:"strand"`
}

// ReadReads decodes aligned reads from r and calls fn for each, tagged with
// library. Alignment strings are passed through as written and checked
// when windows are extracted, so lowercase bases are malformed. fn may
// return an error to stop reading.
//
// ReadReads returns the number of records decoded. Lines with an invalid
// strand are an INVALID_INPUT error naming the line.
func ReadReads(r io.Reader, library string, fn func(window.Read) error) (int, error) {
	tr := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'

	n := 0
	for {
		var row readRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, errors.Wrap(errors.ErrCodeInvalidInput, err, "library %s: record %d", library, n+1)
		}
		strand, err := window.ParseStrand(row.Strand)
		if err != nil {
			return n, errors.Wrap(errors.ErrCodeInvalidInput, err, "library %s: record %d", library, n+1)
		}
		n++
		rec := window.Read{
			RefAlign:  row.RefAlign,
			ReadAlign: row.ReadAlign,
			Strand:    strand,
			Library:   library,
		}
		if err := fn(rec); err != nil {
			return n, err
		}
	}
}

// LoadReads decodes every aligned read from r.
func LoadReads(r io.Reader, library string) ([]window.Read, error) {
	var reads []window.Read
	_, err := ReadReads(r, library, func(rec window.Read) error {
		reads = append(reads, rec)
		return nil
	})
	return reads, err
}

// ImportReads reads the aligned reads of a file. Paths ending in ".gz" are
// gzip-decompressed.
func ImportReads(path, library string) ([]window.Read, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return LoadReads(rc, library)
}

// Open opens path for reading, decompressing ".gz" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "gunzip %s", path)
	}
	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}
