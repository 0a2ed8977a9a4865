// Package vgraph builds the variant graph of a layout group.
//
// Nodes are the distinct window sequences observed across a group's
// experiments plus the reference window, which is always present. Two nodes
// are adjacent when one can be turned into the other by a single elementary
// edit: one substitution, one deleted reference base or one inserted base.
// Adjacency is computed from edit signatures rather than string comparison:
// X and Y are joined when X's signature is one of the one-unit reductions of
// Y (see [edit.Reductions]). Candidate lookup goes through a 64-bit
// fingerprint index, so building is linear in the number of nodes times
// their edit depth.
//
// A node of edit depth d > 0 without a neighbor of depth d-1 is joined to
// the reference by a [KindPath] edge. By induction on depth every node is
// then reachable from the reference; [Graph.Validate] checks it.
//
// Node order is deterministic: reference first, then by depth, then by
// sequence.
package vgraph
