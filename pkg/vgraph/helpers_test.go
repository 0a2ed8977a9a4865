package vgraph

import "github.com/matzehuels/repairgraph/pkg/window"

func windowOf(r [2]string) window.Window {
	return window.Window{RefAlign: r[0], ReadAlign: r[1], Width: len(ref)}
}
