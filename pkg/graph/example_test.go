package graph_test

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/repairgraph/pkg/edit"
	"github.com/matzehuels/repairgraph/pkg/graph"
	"github.com/matzehuels/repairgraph/pkg/vgraph"
)

func ExampleWriteGraph() {
	g, _ := vgraph.New([]string{"wt"}, []*vgraph.Node{
		{Sequence: "ACGT", Reference: true},
		{Sequence: "AGT", Depth: 1, Signature: "1D", Ops: []edit.Op{{Pos: 1, Kind: edit.Deletion}}},
	}, []vgraph.Edge{{From: "ACGT", To: "AGT", Kind: vgraph.KindDeletion}})

	var buf bytes.Buffer
	if err := graph.WriteGraph(g, &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(buf.String())
	// Output:
	// {
	//   "experiments": [
	//     "wt"
	//   ],
	//   "nodes": [
	//     {
	//       "id": "ACGT",
	//       "ops": "",
	//       "depth": 0,
	//       "reference": true
	//     },
	//     {
	//       "id": "AGT",
	//       "ops": "1D",
	//       "depth": 1
	//     }
	//   ],
	//   "edges": [
	//     {
	//       "from": "ACGT",
	//       "to": "AGT",
	//       "kind": "deletion"
	//     }
	//   ]
	// }
}

func ExampleReadGraph() {
	jsonData := `{
		"experiments": ["wt"],
		"nodes": [
			{"id": "ACGT", "reference": true},
			{"id": "ACCGT", "ops": "2I:C"},
			{"id": "ACCCGT", "ops": "2I:CC"}
		],
		"edges": [
			{"from": "ACGT", "to": "ACCGT", "kind": "insertion"},
			{"from": "ACCGT", "to": "ACCCGT", "kind": "insertion"}
		]
	}`

	g, err := graph.ReadGraph(strings.NewReader(jsonData))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, n := range g.Nodes() {
		fmt.Printf("%s depth=%d neighbors=%v\n", n.Sequence, n.Depth, g.Neighbors(n.Sequence))
	}
	// Output:
	// ACGT depth=0 neighbors=[ACCGT]
	// ACCGT depth=1 neighbors=[ACGT ACCCGT]
	// ACCCGT depth=2 neighbors=[ACCGT]
}
