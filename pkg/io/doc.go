// Package io reads aligned-read records and reads and writes variant tables
// as tab-separated text.
//
// # Aligned reads
//
// Input files carry one aligned read per line with a header row naming the
// columns. Columns are matched by name, so their order is free. Files
// ending in .gz are decompressed transparently.
//
//	ref_align	read_align	strand
//	AAAACCCC--GGGGTTTT	AAAACCCCTTGGGGTTTT	+
//
// Bases must be uppercase; lowercase (soft-masked) alignments are
// malformed.
// Use [ImportReads] for a file path or [ReadReads] for any io.Reader.
//
// # Variant tables
//
// [WriteVariants] writes the reference window on a leading "#reference"
// line, then one row per variant of an experiment:
//
//	#reference  CCCCGGGG
//	sequence  count  frequency  freq_stddev  count_<lib>…  freq_<lib>…  edits
//
// Frequencies are written with full precision so a table read back with
// [ReadVariants] reproduces the experiment's numbers exactly. The edits
// column holds the edit signature, e.g. "4I:TT" or "3D,4D".
package io
