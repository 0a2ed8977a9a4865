// Package variant accumulates windowed reads into per-library variant
// tables and merges repeat libraries into experiment-level variant lists.
//
// A variant is identified by its gap-collapsed window sequence. The first
// window seen for a sequence is kept as its representative alignment so
// that edit operations can be re-derived later without string diffing.
//
// # Tables
//
// [Table] is a single-library accumulator. Parallel extraction gives each
// worker a private table and folds them together with [Table.Merge] in chunk
// order, so first-seen order (and with it the tie order of
// [Table.Finalize]) does not depend on scheduling.
//
// # Experiments
//
// [Combine] merges the tables of one experiment's repeat libraries.
// Aggregate counts are summed; frequencies are computed per repeat against
// that repeat's total read count and averaged with equal weight.
package variant
