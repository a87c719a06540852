package binnacle

import (
	"fmt"
	"reflect"
	"testing"
)

// testGraph builds a graph from contig (id, length) pairs and raw links.
// Links get their confidence from support with the default pseudocount.
func testGraph(t *testing.T, contigs map[string]int, links []Link) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range sortedKeys(contigs) {
		g.addContig(Contig{ID: id, Length: contigs[id]})
	}
	for _, l := range links {
		l.canonicalize()
		l.Confidence = confidence(l.Support, 2.0)
		g.addLink(l)
	}
	return g
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

// members flattens a scaffold to "A+ B- C+" form for compact expectations.
func members(s Scaffold) string {
	out := ""
	for i, m := range s.Members {
		if i > 0 {
			out += " "
		}
		out += m.Contig + m.Orientation.String()
	}
	return out
}

func Test_BuildScaffolds_chain(t *testing.T) {
	// A -> B (strong), B -> C (weak): both orientation-consistent, so a
	// single scaffold [A+ B+ C+] comes out
	g := testGraph(t,
		map[string]int{"A": 1000, "B": 500, "C": 300},
		[]Link{
			{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 10, Gap: 25},
			{From: "B", FromOrient: Forward, To: "C", ToOrient: Forward, Support: 2, Gap: -10},
		})

	scaffolds, rejected := BuildScaffolds(g, 1)
	if len(scaffolds) != 1 {
		t.Fatalf("got %d scaffolds, want 1", len(scaffolds))
	}
	if got := members(scaffolds[0]); got != "A+ B+ C+" {
		t.Errorf("scaffold = %q, want \"A+ B+ C+\"", got)
	}
	if scaffolds[0].Members[0].Gap != 25 || scaffolds[0].Members[1].Gap != -10 {
		t.Errorf("gaps = %d, %d, want 25, -10",
			scaffolds[0].Members[0].Gap, scaffolds[0].Members[1].Gap)
	}
	if len(rejected) != 0 {
		t.Errorf("rejected = %v, want none", rejected)
	}
}

func Test_BuildScaffolds_orientation(t *testing.T) {
	tests := []struct {
		name string
		link Link
		want string
	}{
		{
			"forward into reverse",
			Link{From: "A", FromOrient: Forward, To: "B", ToOrient: Reverse, Support: 5},
			"A+ B-",
		},
		{
			"reverse start",
			Link{From: "A", FromOrient: Reverse, To: "B", ToOrient: Forward, Support: 5},
			"A- B+",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGraph(t, map[string]int{"A": 100, "B": 100}, []Link{tt.link})
			scaffolds, _ := BuildScaffolds(g, 1)
			if len(scaffolds) != 1 {
				t.Fatalf("got %d scaffolds, want 1", len(scaffolds))
			}
			if got := members(scaffolds[0]); got != tt.want {
				t.Errorf("scaffold = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_BuildScaffolds_cycleRejected(t *testing.T) {
	// triangle: the weakest link would close the cycle and is rejected,
	// the scaffold stays a simple path
	g := testGraph(t,
		map[string]int{"A": 100, "B": 100, "C": 100},
		[]Link{
			{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 10},
			{From: "B", FromOrient: Forward, To: "C", ToOrient: Forward, Support: 9},
			{From: "C", FromOrient: Forward, To: "A", ToOrient: Forward, Support: 1},
		})

	scaffolds, rejected := BuildScaffolds(g, 1)
	if len(scaffolds) != 1 {
		t.Fatalf("got %d scaffolds, want 1", len(scaffolds))
	}
	if got := members(scaffolds[0]); got != "A+ B+ C+" {
		t.Errorf("scaffold = %q, want \"A+ B+ C+\"", got)
	}
	if len(rejected) != 1 || rejected[0].Reason != RejectCycleClosing {
		t.Errorf("rejected = %v, want one cycle-closing rejection", rejected)
	}
}

func Test_BuildScaffolds_branchPoint(t *testing.T) {
	// two links compete for B's begin; the higher-confidence one wins,
	// C falls out as a singleton
	g := testGraph(t,
		map[string]int{"A": 100, "B": 100, "C": 100},
		[]Link{
			{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 10},
			{From: "C", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 5},
		})

	scaffolds, rejected := BuildScaffolds(g, 1)
	if len(scaffolds) != 2 {
		t.Fatalf("got %d scaffolds, want 2", len(scaffolds))
	}
	if got := members(scaffolds[0]); got != "A+ B+" {
		t.Errorf("first scaffold = %q, want \"A+ B+\"", got)
	}
	if got := members(scaffolds[1]); got != "C+" {
		t.Errorf("second scaffold = %q, want \"C+\"", got)
	}
	if len(rejected) != 1 || rejected[0].Reason != RejectEndOccupied {
		t.Errorf("rejected = %v, want one end-occupied rejection", rejected)
	}
}

func Test_BuildScaffolds_singleton(t *testing.T) {
	g := testGraph(t, map[string]int{"A": 100}, nil)

	scaffolds, rejected := BuildScaffolds(g, 1)
	if len(scaffolds) != 1 || len(rejected) != 0 {
		t.Fatalf("got %d scaffolds, %d rejections, want 1, 0", len(scaffolds), len(rejected))
	}
	if got := members(scaffolds[0]); got != "A+" {
		t.Errorf("scaffold = %q, want \"A+\"", got)
	}
}

func Test_BuildScaffolds_partition(t *testing.T) {
	// every contig appears in exactly one scaffold, whatever the topology
	g := testGraph(t,
		map[string]int{"A": 100, "B": 100, "C": 100, "D": 100, "E": 100, "F": 100},
		[]Link{
			{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 9},
			{From: "B", FromOrient: Forward, To: "C", ToOrient: Forward, Support: 8},
			{From: "C", FromOrient: Forward, To: "A", ToOrient: Forward, Support: 7}, // cycle
			{From: "D", FromOrient: Forward, To: "E", ToOrient: Reverse, Support: 5},
			{From: "D", FromOrient: Forward, To: "F", ToOrient: Forward, Support: 4}, // contested end
		})

	scaffolds, _ := BuildScaffolds(g, 1)

	seen := map[string]int{}
	for _, s := range scaffolds {
		for _, m := range s.Members {
			seen[m.Contig]++
		}
	}
	for _, id := range g.ContigIDs() {
		if seen[id] != 1 {
			t.Errorf("contig %s appears %d times, want exactly 1", id, seen[id])
		}
	}
	if len(seen) != g.NumContigs() {
		t.Errorf("scaffolds cover %d contigs, want %d", len(seen), g.NumContigs())
	}
}

func Test_BuildScaffolds_deterministic(t *testing.T) {
	contigs := map[string]int{}
	var links []Link
	for i := 0; i < 40; i++ {
		contigs[fmt.Sprintf("c%02d", i)] = 100 + i
	}
	for i := 0; i+1 < 40; i++ {
		links = append(links, Link{
			From:       fmt.Sprintf("c%02d", i),
			FromOrient: Forward,
			To:         fmt.Sprintf("c%02d", i+1),
			ToOrient:   Forward,
			Support:    5, // all ties: the ID tie-break decides
			Gap:        10,
		})
	}
	// break into several components
	links = append(links[:10], links[11:]...)
	links = append(links[:25], links[26:]...)

	g := testGraph(t, contigs, links)

	first, firstRejected := BuildScaffolds(g, 1)
	for run := 0; run < 3; run++ {
		got, gotRejected := BuildScaffolds(g, 4)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d with 4 workers differs from serial output", run)
		}
		if !reflect.DeepEqual(gotRejected, firstRejected) {
			t.Fatalf("run %d rejections differ from serial output", run)
		}
	}
}
