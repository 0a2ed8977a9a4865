// Package nodelink renders variant graphs as node-link diagrams.
//
// # Overview
//
// Each variant is drawn as a circle at the position computed by the layout
// engine. Node area follows variant frequency and edges are styled by edit
// kind. Graphviz does not re-layout anything: every node carries a pinned
// pos attribute and the DOT is drawn with the neato engine.
//
// # Usage
//
//	dot, err := nodelink.ToDOT(g, l, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0)  // 2x scale
//
// # Options
//
//   - Detailed: label nodes with their edit signature and frequency
//   - Experiment: size nodes by one experiment's frequency instead of the maximum
//   - Scale: points per layout unit
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
