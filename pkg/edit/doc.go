// Package edit defines the edit alphabet shared by windowing and graph
// construction.
//
// An alignment is a pair of equal-length strings over {A,C,G,T,-} in
// alignment-matrix form. Each column is classified as one of:
//
//	Match         ref == read, both bases
//	Substitution  ref != read, both bases
//	Insertion     ref is a gap, read is a base
//	Deletion      ref is a base, read is a gap
//
// [Classify] turns an alignment into an ordered list of [Op] values in
// reference coordinates: Pos counts the reference bases that precede the
// column. Deletions produce one op per deleted reference base. Consecutive
// insertion columns collapse into a single op carrying all inserted bases.
//
// # Elementary units
//
// Edit distance in this package is measured in elementary units rather than
// generic Levenshtein distance: one substitution, one deleted base, or one
// inserted base. [Reductions] lists every op list reachable by removing
// exactly one unit, which is what the variant graph uses to find one-step
// neighbors without comparing all pairs.
//
// # Normalization
//
// [NormalizeSubstitutions] rewrites substitution columns to matches and
// leaves gap columns untouched. It is idempotent.
package edit
