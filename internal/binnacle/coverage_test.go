package binnacle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harihara-subrahmaniam-muralidharan/binnacle/config"
)

func Test_pileup(t *testing.T) {
	g := testGraph(t, map[string]int{"A": 4, "B": 4}, nil)

	scaffolds := []Scaffold{{Members: []ScaffoldMember{
		{Contig: "A", Orientation: Forward, Gap: 2},
		{Contig: "B", Orientation: Reverse},
	}}}
	AssignSpans(scaffolds, g)

	depths := DepthTable{
		"A": {1, 1, 2, 2},
		"B": {5, 6, 7, 8},
	}
	cov := pileup(&scaffolds[0], depths)

	// the reverse member contributes its depth vector reversed
	assert.Equal(t, []float64{1, 1, 2, 2, 0, 0, 8, 7, 6, 5}, cov)
}

func Test_pileup_overlap(t *testing.T) {
	g := testGraph(t, map[string]int{"A": 4, "B": 4}, nil)

	scaffolds := []Scaffold{{Members: []ScaffoldMember{
		{Contig: "A", Orientation: Forward, Gap: -2},
		{Contig: "B", Orientation: Forward},
	}}}
	AssignSpans(scaffolds, g)

	depths := DepthTable{
		"A": {1, 1, 1, 1},
		"B": {2, 2, 2, 2},
	}
	cov := pileup(&scaffolds[0], depths)

	// overlapping bases accumulate both members' depth
	assert.Equal(t, []float64{1, 1, 3, 3, 2, 2}, cov)
}

func Test_rollingMean(t *testing.T) {
	got := rollingMean([]float64{1, 2, 3, 4}, 2)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got)
}

func Test_rollingStd(t *testing.T) {
	got := rollingStd([]float64{1, 1, 1, 5}, 2)
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 2.8284, got[2], 1e-3)
}

func Test_percentile(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		p    float64
		want float64
	}{
		{"median interpolates", []float64{1, 2, 3, 4}, 50, 2.5},
		{"max", []float64{1, 2, 3, 4}, 100, 4},
		{"min", []float64{4, 3, 2, 1}, 0, 1},
		{"empty", nil, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentile(tt.xs, tt.p))
		})
	}
}

func Test_shrinkWindow(t *testing.T) {
	assert.Equal(t, 20, shrinkWindow(20, 100), "window already fits")
	assert.Equal(t, 4, shrinkWindow(20, 30), "20 >= 15 shrinks once")
	assert.Equal(t, 0, shrinkWindow(1500, 4), "tiny stretch shrinks to nothing")
}

func Test_changepointRatio(t *testing.T) {
	// a clean 1 -> 10 coverage step produces a ratio spike at the step
	cov := make([]float64, 30)
	for i := range cov {
		if i < 15 {
			cov[i] = 1
		} else {
			cov[i] = 10
		}
	}

	cpts := changepointRatio(cov, 20) // shrinks to 4
	require.Len(t, cpts, len(cov))

	for i := 0; i < 4; i++ {
		assert.Zero(t, cpts[i], "leading window pad at %d", i)
	}
	for i := len(cpts) - 4; i < len(cpts); i++ {
		assert.Zero(t, cpts[i], "trailing window pad at %d", i)
	}

	max, argmax := 0.0, -1
	for i, v := range cpts {
		if v > max {
			max, argmax = v, i
		}
	}
	assert.Equal(t, 10.0, max, "full step ratio")
	assert.InDelta(t, 15, argmax, 4, "spike sits at the coverage step")
}

func Test_changepointRatio_shortStretch(t *testing.T) {
	cov := []float64{1, 2, 1}
	assert.Equal(t, []float64{0, 0, 0}, changepointRatio(cov, 1500))
}

func Test_changepointZ(t *testing.T) {
	cov := make([]float64, 40)
	for i := range cov {
		cov[i] = 2
		if i >= 20 {
			cov[i] = 12
		}
		// jitter so the window std is nonzero
		if i%2 == 0 {
			cov[i]++
		}
	}

	cpts := changepointZ(cov, 6)
	require.Len(t, cpts, len(cov))

	max := 0.0
	for _, v := range cpts {
		if v > max {
			max = v
		}
	}
	min := 0.0
	for _, v := range cpts {
		if v < min {
			min = v
		}
	}
	assert.Greater(t, max-min, 1.0, "step should register as a strong z score")
}

func Test_idPeaks(t *testing.T) {
	vec := []float64{0, 1, 3, 1, 0, 5, 0, 1, 4, 1, 0}
	// peaks at 2 (3), 5 (5) and 8 (4); the 98.5 percentile keeps the
	// extremes of the peak-value distribution
	got := idPeaks(vec, 98.5)
	assert.Equal(t, []int{2, 5}, got, "largest peak and two-sided low outlier")
}

func Test_idPeaks_empty(t *testing.T) {
	assert.Nil(t, idPeaks([]float64{0, 0, 0}, 98.5))
	assert.Nil(t, idPeaks(nil, 98.5))
}

func Test_filterNeighbors(t *testing.T) {
	cpts := make([]float64, 200)
	cpts[10] = 2
	cpts[15] = 5
	cpts[100] = 1

	got := filterNeighbors([]int{10, 15, 100}, cpts, 10)
	assert.Equal(t, []int{15, 100}, got, "close pair keeps the larger statistic")

	assert.Empty(t, filterNeighbors(nil, cpts, 10))
}

func Test_delinkKeys(t *testing.T) {
	g := testGraph(t, map[string]int{"A": 100, "B": 100, "C": 100}, nil)

	l1 := Link{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward}
	l2 := Link{From: "B", FromOrient: Forward, To: "C", ToOrient: Forward}

	newScaffold := func(orientB Orientation) *Scaffold {
		s := &Scaffold{
			Members: []ScaffoldMember{
				{Contig: "A", Orientation: Forward},
				{Contig: "B", Orientation: orientB},
				{Contig: "C", Orientation: Forward},
			},
			Links: []Link{l1, l2},
		}
		scaffolds := []Scaffold{*s}
		AssignSpans(scaffolds, g)
		return &scaffolds[0]
	}

	tests := []struct {
		name    string
		orientB Orientation
		outlier int
		want    []linkKey
	}{
		{
			// changepoint at C's start boundary, C forward: drop the
			// link to C's predecessor
			"forward start drops predecessor",
			Forward,
			200,
			[]linkKey{l2.key()},
		},
		{
			// changepoint near A's end boundary, A forward: drop the
			// link to A's successor
			"forward end drops successor",
			Forward,
			95,
			[]linkKey{l1.key()},
		},
		{
			// changepoint near B's end boundary, B reverse: drop the
			// link to B's predecessor
			"reverse end drops predecessor",
			Reverse,
			105,
			[]linkKey{l1.key()},
		},
		{
			// changepoint near B's start boundary, B reverse: drop the
			// link to B's successor
			"reverse start drops successor",
			Reverse,
			195,
			[]linkKey{l2.key()},
		},
		{
			"no boundary in reach",
			Forward,
			150,
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScaffold(tt.orientB)
			got := delinkKeys(s, []int{tt.outlier}, 10)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_DelinkChangepoints_coverageStep(t *testing.T) {
	// a sharp depth step at the A/B junction marks the link as suspect:
	// the link is removed and re-extraction splits the scaffold
	g := testGraph(t, map[string]int{"A": 30, "B": 30},
		[]Link{{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 5}})
	scaffolds, _ := BuildScaffolds(g, 1)
	AssignSpans(scaffolds, g)
	require.Len(t, scaffolds, 1)
	require.Len(t, scaffolds[0].Members, 2)

	depths := DepthTable{
		"A": make([]float64, 30),
		"B": make([]float64, 30),
	}
	for i := 0; i < 30; i++ {
		depths["A"][i] = 2
		depths["B"][i] = 8
	}

	cp := config.ChangepointConfig{
		Window: 1500, Method: "ratio",
		OutlierPercentile: 98.5, NeighborWindow: 100, PositionCutoff: 100,
	}
	reduced, n := DelinkChangepoints(g, scaffolds, depths, cp)
	assert.Equal(t, 1, n, "junction link removed")
	assert.Zero(t, reduced.NumLinks())

	split, _ := BuildScaffolds(reduced, 1)
	require.Len(t, split, 2, "scaffold splits at the coverage step")
	assert.Equal(t, "A", split[0].Members[0].Contig)
	assert.Equal(t, "B", split[1].Members[0].Contig)
}

func Test_DelinkChangepoints_noChangepoints(t *testing.T) {
	g := testGraph(t, map[string]int{"A": 50, "B": 50},
		[]Link{{From: "A", FromOrient: Forward, To: "B", ToOrient: Forward, Support: 5}})
	scaffolds, _ := BuildScaffolds(g, 1)
	AssignSpans(scaffolds, g)

	depths := DepthTable{
		"A": make([]float64, 50),
		"B": make([]float64, 50),
	}
	for i := 0; i < 50; i++ {
		depths["A"][i] = 3
		depths["B"][i] = 3
	}

	cp := config.ChangepointConfig{
		Window: 1500, Method: "ratio",
		OutlierPercentile: 98.5, NeighborWindow: 100, PositionCutoff: 100,
	}
	reduced, n := DelinkChangepoints(g, scaffolds, depths, cp)
	assert.Zero(t, n, "flat coverage has nothing to delink")
	assert.Same(t, g, reduced, "graph returned untouched")
}
