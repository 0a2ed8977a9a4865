package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/render"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

// DefaultScale is the number of points per layout unit.
const DefaultScale = 72.0

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed labels nodes with their edit signature and frequency.
	// When false, only the reference is labelled.
	Detailed bool

	// Experiment selects the frequency used for node size. Empty uses the
	// largest frequency over all experiments.
	Experiment string

	// Scale is the number of points per layout unit. Zero uses DefaultScale.
	Scale float64
}

var edgeStyles = map[string]string{
	string(vgraph.KindSubstitution): `color="#4477aa"`,
	string(vgraph.KindInsertion):    `color="#228833"`,
	string(vgraph.KindDeletion):     `color="#ee6677"`,
	string(vgraph.KindPath):         `color="#bbbbbb", style=dashed`,
}

// ToDOT converts a graph and its layout to Graphviz DOT with pinned node
// positions. Every node must have a position in l.
func ToDOT(g graph.Graph, l graph.Layout, opts Options) (string, error) {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	pos := l.PositionMap()

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=circle, fixedsize=true, style=filled, fillcolor=\"#dddddd\", fontsize=10, penwidth=0.5];\n")
	buf.WriteString("  edge [penwidth=1.2];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			return "", errors.New(errors.ErrCodeNotFound, "layout %q has no position for variant %s", l.Group, n.ID)
		}
		attrs := fmtAttrs(n, nodeFrequency(n, opts.Experiment), opts.Detailed)
		attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(p.X*scale), fmtCoord(p.Y*scale)))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		style, ok := edgeStyles[e.Kind]
		if !ok {
			style = "color=black"
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", e.From, e.To, style)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeFrequency(n graph.Node, experiment string) float64 {
	if experiment != "" {
		return n.Frequencies[experiment]
	}
	return n.Frequency()
}

func fmtLabel(n graph.Node, freq float64, detailed bool) string {
	switch {
	case n.Reference && detailed:
		return fmt.Sprintf("ref\n%.3g", freq)
	case n.Reference:
		return "ref"
	case detailed:
		return fmt.Sprintf("%s\n%.3g", n.Ops, freq)
	}
	return ""
}

func fmtAttrs(n graph.Node, freq float64, detailed bool) []string {
	// Area proportional to frequency, with a floor so rare variants stay visible.
	width := 0.15 + 0.85*math.Sqrt(min(max(freq, 0), 1))
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, freq, detailed)),
		fmt.Sprintf("width=%s", fmtCoord(width)),
		fmt.Sprintf("tooltip=%q", n.ID),
	}
	if n.Reference {
		attrs = append(attrs, "fillcolor=\"#f2c14e\"", "penwidth=1.5")
	} else {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", depthColor(n.Depth)))
	}
	return attrs
}

var depthPalette = []string{"#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5"}

func depthColor(depth int) string {
	if depth <= 0 {
		return depthPalette[0]
	}
	return depthPalette[min(depth, len(depthPalette))-1]
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// RenderSVG renders a DOT graph with pinned positions to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the Graphviz root element with one whose size
// matches its viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}

// Render produces one output format for a graph and its layout.
func Render(g graph.Graph, l graph.Layout, format string, opts Options) ([]byte, error) {
	dot, err := ToDOT(g, l, opts)
	if err != nil {
		return nil, err
	}
	switch format {
	case render.FormatDOT:
		return []byte(dot), nil
	case render.FormatSVG:
		return RenderSVG(dot)
	case render.FormatPDF:
		return RenderPDF(dot)
	case render.FormatPNG:
		return RenderPNG(dot, 2.0)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
}
