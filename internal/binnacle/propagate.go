package binnacle

import (
	"sort"
)

// BinCallKind tags the three possible outcomes of resolving a
// scaffold's bin.
type BinCallKind int8

const (
	// BinConcrete: the scaffold resolved to a single bin label.
	BinConcrete BinCallKind = iota

	// BinUnbinned: no member contig carried a label.
	BinUnbinned

	// BinAmbiguous: conflicting labels with no resolvable majority.
	BinAmbiguous
)

func (k BinCallKind) String() string {
	switch k {
	case BinConcrete:
		return "binned"
	case BinAmbiguous:
		return "ambiguous"
	}
	return "unbinned"
}

// BinCall is a scaffold's resolved bin: either a concrete label or one
// of the two sentinel outcomes. Ambiguity is a value, never an error.
type BinCall struct {
	Kind BinCallKind

	// Bin is the resolved label; empty unless Kind is BinConcrete.
	Bin string
}

// ResolveBin resolves one bin label for a scaffold from its members'
// (possibly partial) contig-level labels, weighted by contig length.
//
// No labeled member: unbinned. One distinct label: that label. Several:
// the top label wins only if its weight strictly exceeds majority times
// the scaffold's total contig length and strictly exceeds the runner-up;
// otherwise the call is ambiguous.
func ResolveBin(s *Scaffold, g *Graph, bins BinTable, majority float64) BinCall {
	weights := make(map[string]int)
	total := 0
	for _, m := range s.Members {
		c, _ := g.Contig(m.Contig)
		total += c.Length
		if bin, ok := bins[m.Contig]; ok {
			weights[bin] += c.Length
		}
	}

	if len(weights) == 0 {
		return BinCall{Kind: BinUnbinned}
	}
	if len(weights) == 1 {
		for bin := range weights {
			return BinCall{Kind: BinConcrete, Bin: bin}
		}
	}

	// rank labels by weight, label ascending on ties for determinism
	labels := make([]string, 0, len(weights))
	for bin := range weights {
		labels = append(labels, bin)
	}
	sort.Slice(labels, func(i, j int) bool {
		if weights[labels[i]] != weights[labels[j]] {
			return weights[labels[i]] > weights[labels[j]]
		}
		return labels[i] < labels[j]
	})

	top, runnerUp := weights[labels[0]], weights[labels[1]]
	if float64(top) > majority*float64(total) && top > runnerUp {
		return BinCall{Kind: BinConcrete, Bin: labels[0]}
	}
	return BinCall{Kind: BinAmbiguous}
}

// PropagateBins resolves a bin call for every scaffold and produces the
// refined contig-to-bin mapping: members of a concretely resolved
// scaffold take the scaffold's label, overriding their original label if
// it disagreed; members of ambiguous or unbinned scaffolds keep their
// original label (possibly still unbinned). Propagation never removes a
// label, so the refined table is at least as complete as the original.
//
// Returned calls are indexed like the scaffolds slice.
func PropagateBins(scaffolds []Scaffold, g *Graph, bins BinTable, majority float64) ([]BinCall, BinTable) {
	refined := make(BinTable, len(bins))
	for contig, bin := range bins {
		refined[contig] = bin
	}

	calls := make([]BinCall, len(scaffolds))
	for i := range scaffolds {
		calls[i] = ResolveBin(&scaffolds[i], g, bins, majority)
		if calls[i].Kind != BinConcrete {
			continue
		}
		for _, m := range scaffolds[i].Members {
			refined[m.Contig] = calls[i].Bin
		}
	}

	return calls, refined
}
