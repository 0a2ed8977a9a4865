// Package render provides visualization output for variant graphs.
//
// # Overview
//
// This package contains the format conversion shared by renderers:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Node-link diagrams with pinned layouts (in [nodelink] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage writes Graphviz DOT with every node pinned at
// its computed layout position, so Graphviz only draws.
//
//	dot := nodelink.ToDOT(g, l, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [nodelink]: github.com/matzehuels/repairgraph/pkg/render/nodelink
package render
