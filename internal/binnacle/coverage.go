package binnacle

import (
	"math"
	"sort"

	"github.com/harihara-subrahmaniam-muralidharan/binnacle/config"
)

// pileup sums the members' per-base depth vectors into one coverage
// vector along the scaffold's global coordinates. Reverse-oriented
// members contribute their vector reversed. Spans must be assigned.
func pileup(s *Scaffold, depths DepthTable) []float64 {
	cov := make([]float64, s.Length)
	for _, m := range s.Members {
		vec := depths[m.Contig]
		lo, hi := m.Span.Lo(), m.Span.Hi()
		if hi-lo > len(vec) {
			hi = lo + len(vec)
		}
		if m.Span.Forward() {
			for p := lo; p < hi; p++ {
				cov[p] += vec[p-lo]
			}
		} else {
			for p := lo; p < hi; p++ {
				cov[p] += vec[hi-1-p]
			}
		}
	}
	return cov
}

// changepointRatio slides a window along the nonzero coverage positions
// and scores each position by the ratio of the larger to the smaller of
// the mean of the preceding and succeeding windows. A spike in the ratio
// marks a candidate changepoint. The window shrinks adaptively when the
// covered stretch is shorter than two windows.
func changepointRatio(cov []float64, window int) []float64 {
	nz, sliced := nonzero(cov)
	out := make([]float64, len(cov))

	w := shrinkWindow(window, len(sliced))
	if w < 1 || len(sliced) < 2*w+2 {
		return out
	}

	ma := rollingMean(sliced, w)
	n := len(ma) - w - 1
	stat := make([]float64, len(sliced))
	for i := 0; i < n; i++ {
		pred, succ := ma[i], ma[i+w+1]
		lo, hi := math.Min(pred, succ), math.Max(pred, succ)
		if lo > 0 {
			stat[w+i] = hi / lo
		}
	}

	for i, p := range nz {
		out[p] = stat[i]
	}
	return out
}

// changepointZ is the z-statistic variant: for each position, the means
// of the preceding and succeeding windows are compared as a two-sample
// z score using the windows' standard deviations.
func changepointZ(cov []float64, window int) []float64 {
	nz, sliced := nonzero(cov)
	out := make([]float64, len(cov))

	w := shrinkWindow(window, len(sliced))
	if w < 2 || len(sliced) < 2*w+2 {
		return out
	}

	ma := rollingMean(sliced, w)
	sd := rollingStd(sliced, w)
	n := len(ma) - w - 1
	stat := make([]float64, len(sliced))
	for i := 0; i < n; i++ {
		denom := math.Sqrt(sd[i]*sd[i] + sd[i+w+1]*sd[i+w+1])
		if denom > 0 {
			stat[w+i] = (ma[i] - ma[i+w+1]) / denom
		}
	}

	for i, p := range nz {
		out[p] = stat[i]
	}
	return out
}

// nonzero returns the indices and values of the positive coverage positions.
func nonzero(cov []float64) ([]int, []float64) {
	var idx []int
	var vals []float64
	for i, v := range cov {
		if v > 0 {
			idx = append(idx, i)
			vals = append(vals, v)
		}
	}
	return idx, vals
}

// shrinkWindow reduces the window until it fits twice into the covered
// stretch, dividing by 5 as the original pipeline does.
func shrinkWindow(window, n int) int {
	for window >= 1 && window >= n/2 {
		window /= 5
	}
	return window
}

// rollingMean returns the mean of every length-w window, len(xs)-w+1 values.
func rollingMean(xs []float64, w int) []float64 {
	out := make([]float64, len(xs)-w+1)
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= w {
			sum -= xs[i-w]
		}
		if i >= w-1 {
			out[i-w+1] = sum / float64(w)
		}
	}
	return out
}

// rollingStd returns the sample standard deviation of every length-w
// window, len(xs)-w+1 values.
func rollingStd(xs []float64, w int) []float64 {
	out := make([]float64, len(xs)-w+1)
	sum, sumsq := 0.0, 0.0
	for i, x := range xs {
		sum += x
		sumsq += x * x
		if i >= w {
			sum -= xs[i-w]
			sumsq -= xs[i-w] * xs[i-w]
		}
		if i >= w-1 {
			variance := (sumsq - sum*sum/float64(w)) / float64(w-1)
			if variance < 0 {
				variance = 0
			}
			out[i-w+1] = math.Sqrt(variance)
		}
	}
	return out
}

// percentile returns the p'th percentile of xs with linear interpolation
// between ranks.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// idPeaks finds the outlier peaks of a changepoint vector. A peak is a
// positive position at least as large as both neighbors; peaks are then
// cut at the two-sided percentile threshold. Detecting peaks first keeps
// the percentile cut from picking up the shoulders of a single spike.
func idPeaks(cpts []float64, thresh float64) []int {
	var peaks []int
	var values []float64
	for i := 1; i+1 < len(cpts); i++ {
		if cpts[i] <= 0 {
			continue
		}
		if cpts[i] >= cpts[i-1] && cpts[i] >= cpts[i+1] {
			peaks = append(peaks, i)
			values = append(values, cpts[i])
		}
	}
	if len(peaks) == 0 {
		return nil
	}

	upper := percentile(values, thresh)
	lower := percentile(values, 100-thresh)
	var out []int
	for i, p := range peaks {
		if values[i] >= upper || values[i] <= lower {
			out = append(out, p)
		}
	}
	return out
}

// filterNeighbors collapses outliers closer together than window bp,
// keeping the one with the larger changepoint statistic. Input must be
// sorted ascending; output is sorted ascending.
func filterNeighbors(outliers []int, cpts []float64, window int) []int {
	if len(outliers) == 0 {
		return outliers
	}

	keep := map[int]bool{outliers[0]: true}
	cmp := outliers[0]
	for _, curr := range outliers[1:] {
		if curr-cmp <= window {
			if cpts[curr] >= cpts[cmp] {
				delete(keep, cmp)
				keep[curr] = true
				cmp = curr
			} else {
				keep[cmp] = true
			}
		} else {
			keep[curr] = true
			cmp = curr
		}
	}

	out := make([]int, 0, len(keep))
	for p := range keep {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// delinkKeys maps each surviving changepoint to the nearest member
// boundary within posCutoff bp and applies the delinking rule table:
//
//	forward + start boundary, or reverse + end boundary -> drop the link to the predecessor
//	forward + end boundary, or reverse + start boundary -> drop the link to the successor
//
// Returns the keys of the junction links to remove from the graph.
func delinkKeys(s *Scaffold, outliers []int, posCutoff int) []linkKey {
	if len(outliers) == 0 || len(s.Members) < 2 {
		return nil
	}
	pos := positionIndex(s)

	type hit struct {
		forward bool
		start   bool
	}
	hits := make(map[int]hit) // member index -> closest boundary kind
	for _, o := range outliers {
		members, ok := pos[o]
		if !ok {
			continue
		}

		closest, closestDist := -1, math.MaxInt32
		var h hit
		for _, mi := range members {
			sp := s.Members[mi].Span
			fwd := sp.Forward()
			if d := abs(sp.Start - o); d < closestDist {
				closest, closestDist = mi, d
				h = hit{forward: fwd, start: true}
			}
			if d := abs(sp.End - o); d < closestDist {
				closest, closestDist = mi, d
				h = hit{forward: fwd, start: false}
			}
		}
		if closest >= 0 && closestDist <= posCutoff {
			hits[closest] = h
		}
	}

	members := make([]int, 0, len(hits))
	for mi := range hits {
		members = append(members, mi)
	}
	sort.Ints(members)

	dropSet := make(map[linkKey]bool)
	var keys []linkKey
	drop := func(l Link) {
		if !dropSet[l.key()] {
			dropSet[l.key()] = true
			keys = append(keys, l.key())
		}
	}
	for _, mi := range members {
		h := hits[mi]
		predecessor := h.forward == h.start // fwd+start or rev+end
		if predecessor {
			if mi > 0 {
				drop(s.Links[mi-1])
			}
		} else {
			if mi < len(s.Members)-1 {
				drop(s.Links[mi])
			}
		}
	}
	return keys
}

// varies reports whether the positive values of the statistic differ at
// all from one another.
func varies(cpts []float64) bool {
	first, seen := 0.0, false
	for _, v := range cpts {
		if v <= 0 {
			continue
		}
		if !seen {
			first, seen = v, true
		} else if v != first {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// DelinkChangepoints scans every multi-contig scaffold's coverage for
// changepoints and removes the linkage edges implicated by them,
// returning the reduced graph and the number of links removed. The
// caller re-runs scaffold extraction on the reduced graph. Never fails:
// delinking only ever removes links.
func DelinkChangepoints(g *Graph, scaffolds []Scaffold, depths DepthTable, cp config.ChangepointConfig) (*Graph, int) {
	drop := make(map[linkKey]bool)
	for i := range scaffolds {
		s := &scaffolds[i]
		if len(s.Members) < 2 || s.Length == 0 {
			continue
		}

		cov := pileup(s, depths)
		var cpts []float64
		if cp.Method == "zscore" {
			cpts = changepointZ(cov, cp.Window)
		} else {
			cpts = changepointRatio(cov, cp.Window)
		}
		if !varies(cpts) {
			// a flat statistic carries no changepoint signal; without this
			// check the percentile cut would flag a constant plateau
			continue
		}

		peaks := idPeaks(cpts, cp.OutlierPercentile)
		peaks = filterNeighbors(peaks, cpts, cp.NeighborWindow)
		for _, k := range delinkKeys(s, peaks, cp.PositionCutoff) {
			drop[k] = true
		}
	}

	if len(drop) == 0 {
		return g, 0
	}
	return g.WithoutLinks(drop), len(drop)
}
