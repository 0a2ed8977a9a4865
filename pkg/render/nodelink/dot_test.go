package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/repairgraph/pkg/errors"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/render"
)

func testGraph() (graph.Graph, graph.Layout) {
	g := graph.Graph{
		Experiments: []string{"wt", "ko"},
		Nodes: []graph.Node{
			{ID: "CCCCGGGG", Reference: true, Frequencies: map[string]float64{"wt": 0.5, "ko": 0.4}},
			{ID: "CCCGGGG", Ops: "3D", Depth: 1, Frequencies: map[string]float64{"wt": 0.25, "ko": 0.6}},
		},
		Edges: []graph.Edge{{From: "CCCCGGGG", To: "CCCGGGG", Kind: "deletion"}},
	}
	l := graph.Layout{
		Group:   "sgA",
		Version: "v1",
		Positions: []graph.Position{
			{ID: "CCCCGGGG", X: 0, Y: 0},
			{ID: "CCCGGGG", X: -1, Y: 0.5},
		},
	}
	return g, l
}

func TestToDOT(t *testing.T) {
	g, l := testGraph()
	dot, err := ToDOT(g, l, Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	for _, want := range []string{
		"graph G {",
		`"CCCCGGGG" [label="ref"`,
		`pos="0.00,0.00!"`,
		`pos="-72.00,36.00!"`,
		`"CCCCGGGG" -- "CCCGGGG" [color="#ee6677"]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "3D") {
		t.Errorf("non-detailed DOT should not label variants:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	g, l := testGraph()
	dot, err := ToDOT(g, l, Options{Detailed: true, Experiment: "wt", Scale: 10})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	if !strings.Contains(dot, `label="3D\n0.25"`) {
		t.Errorf("expected signature and wt frequency label:\n%s", dot)
	}
	if !strings.Contains(dot, `pos="-10.00,5.00!"`) {
		t.Errorf("expected scaled position:\n%s", dot)
	}
}

func TestToDOTMissingPosition(t *testing.T) {
	g, l := testGraph()
	l.Positions = l.Positions[:1]
	_, err := ToDOT(g, l, Options{})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestDepthColor(t *testing.T) {
	if depthColor(1) != depthPalette[0] {
		t.Errorf("depth 1 = %s", depthColor(1))
	}
	if depthColor(99) != depthPalette[len(depthPalette)-1] {
		t.Errorf("deep nodes should use the last palette entry")
	}
}

func TestRenderDOTFormat(t *testing.T) {
	g, l := testGraph()
	out, err := Render(g, l, render.FormatDOT, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(out), "graph G {") {
		t.Errorf("unexpected DOT output: %s", out)
	}

	if _, err := Render(g, l, "gif", Options{}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("gif: err = %v, want UNSUPPORTED", err)
	}
}

func TestRenderSVG(t *testing.T) {
	g, l := testGraph()
	dot, err := ToDOT(g, l, Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	svg, err := RenderSVG(dot)
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("output is not SVG")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}
