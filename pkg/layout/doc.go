// Package layout computes and persists one shared 2D layout per layout
// group.
//
// Positions come from a Fruchterman–Reingold style spring embedding of the
// group's variant graph. The reference is pinned at the origin; edges pull
// with w·d²/k where w grows with the shared edit depth of the endpoints, and
// every pair of nodes repels with k²/d². Each iteration caps displacement at
// a linearly cooling temperature and stops early once the largest move falls
// below the threshold.
//
// Runs are deterministic: initial positions come from a PCG generator seeded
// from the configured seed and each node's sequence, biased along x by the
// mean position of the node's edits in the window, and per-node forces are
// summed independently of goroutine scheduling.
//
// # Versioning
//
// A layout's version is a SHA-256 over the sorted node set, the edges, the
// mirror flag and the simulation options. [Engine.Compute] returns a stored
// layout untouched when its version matches; otherwise it computes once per
// version per process and writes through [Store.CompareAndSwap], so
// concurrent writers cannot silently replace each other's layouts.
package layout
