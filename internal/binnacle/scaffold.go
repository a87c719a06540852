package binnacle

import (
	"sort"
	"sync"
)

// ScaffoldMember is one contig's position within a scaffold.
type ScaffoldMember struct {
	// Contig is the member's contig ID.
	Contig string

	// Orientation the contig is read in within the scaffold.
	Orientation Orientation

	// Gap is the estimated distance in bp to the next member.
	// 0 for the last member.
	Gap int

	// Span is the member's global coordinates in the scaffold,
	// filled in by AssignSpans.
	Span Span
}

// Scaffold is an ordered, orientation-consistent chain of contigs.
// Consecutive members are connected by an accepted link; a single
// unlinked contig is a valid scaffold of length 1.
type Scaffold struct {
	// ID numbers scaffolds in deterministic output order.
	ID int

	// Members in traversal order.
	Members []ScaffoldMember

	// Links are the accepted links joining consecutive members,
	// len(Members)-1 of them, in traversal order.
	Links []Link

	// Length is the scaffold's extent in global coordinates,
	// filled in by AssignSpans.
	Length int
}

// RejectReason says why the builder passed over a candidate link.
type RejectReason int8

const (
	// RejectEndOccupied: a higher-confidence link already claimed one of
	// the candidate's contig ends.
	RejectEndOccupied RejectReason = iota

	// RejectCycleClosing: the candidate would connect two contigs already
	// in the same forming chain, revisiting a contig.
	RejectCycleClosing
)

func (r RejectReason) String() string {
	if r == RejectCycleClosing {
		return "cycle-closing"
	}
	return "end-occupied"
}

// RejectedLink is a diagnostic record for a link the builder passed
// over. Not an error: rejections are expected at repeats and branch
// points and are surfaced for post-hoc tuning.
type RejectedLink struct {
	Link   Link
	Reason RejectReason
}

// BuildScaffolds partitions the graph's contigs into scaffolds: every
// contig belongs to exactly one, and no scaffold revisits a contig.
//
// Links are processed in confidence order (ties: support descending,
// then source and target contig ID ascending), accepting a link only if
// both of its contig ends are still free and it would not close a cycle.
// The accepted links form disjoint simple paths, each emitted as one
// scaffold; contigs with no accepted link become singleton scaffolds.
// Output is deterministic for a given graph regardless of workers.
//
// Acceptance is independent across connected components, so components
// are processed by a bounded worker pool; workers <= 1 runs serially.
func BuildScaffolds(g *Graph, workers int) ([]Scaffold, []RejectedLink) {
	comps := g.components()

	type compResult struct {
		used     map[endpoint]int
		rejected []RejectedLink
	}
	results := make([]compResult, len(comps))

	accept := func(ci int) {
		results[ci].used, results[ci].rejected = acceptLinks(g, comps[ci].links)
	}

	if workers > 1 && len(comps) > 1 {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ci := range jobs {
					accept(ci)
				}
			}()
		}
		for ci := range comps {
			jobs <- ci
		}
		close(jobs)
		wg.Wait()
	} else {
		for ci := range comps {
			accept(ci)
		}
	}

	// merge: endpoint maps are disjoint across components
	used := make(map[endpoint]int)
	var rejected []RejectedLink
	for _, r := range results {
		for ep, li := range r.used {
			used[ep] = li
		}
		rejected = append(rejected, r.rejected...)
	}

	return emitScaffolds(g, used), rejected
}

// acceptLinks runs the greedy confidence-ordered acceptance over one
// component's links. Returns the accepted link per endpoint and the
// rejections.
func acceptLinks(g *Graph, links []int) (map[endpoint]int, []RejectedLink) {
	order := make([]int, len(links))
	copy(order, links)
	sort.Slice(order, func(i, j int) bool {
		return lessLink(&g.links[order[i]], &g.links[order[j]])
	})

	used := make(map[endpoint]int)
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok || p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}

	var rejected []RejectedLink
	for _, li := range order {
		l := &g.links[li]
		from := endpoint{l.From, l.fromEnd()}
		to := endpoint{l.To, l.toEnd()}

		if _, taken := used[from]; taken {
			rejected = append(rejected, RejectedLink{*l, RejectEndOccupied})
			continue
		}
		if _, taken := used[to]; taken {
			rejected = append(rejected, RejectedLink{*l, RejectEndOccupied})
			continue
		}
		if rf, rt := find(l.From), find(l.To); rf == rt {
			// both contigs already sit in the same forming chain: the
			// link would revisit a contig, so the repeat collapses to a
			// single occurrence
			rejected = append(rejected, RejectedLink{*l, RejectCycleClosing})
			continue
		} else {
			parent[rf] = rt
		}

		used[from] = li
		used[to] = li
	}

	return used, rejected
}

// lessLink orders candidate links for acceptance: confidence descending,
// then support descending, then source and target contig ID ascending.
// The full rule makes scaffold output byte-identical across runs.
func lessLink(a, b *Link) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Support != b.Support {
		return a.Support > b.Support
	}
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}

// emitScaffolds walks the accepted links into ordered scaffolds. Contig
// IDs are visited in ascending order and each walk starts at a chain
// end, so scaffold numbering is deterministic.
func emitScaffolds(g *Graph, used map[endpoint]int) []Scaffold {
	visited := make(map[string]bool, g.NumContigs())
	var scaffolds []Scaffold

	for _, id := range g.ContigIDs() {
		if visited[id] {
			continue
		}

		beginLink, beginUsed := used[endpoint{id, endBegin}]
		endLink, endUsed := used[endpoint{id, endEnd}]
		if beginUsed && endUsed {
			// interior of a chain; the walk from the chain's end picks it up.
			// accepted links never form cycles, so every chain has two ends
			continue
		}

		s := Scaffold{ID: len(scaffolds)}
		var exitLink int
		hasExit := false
		switch {
		case endUsed:
			// leaves through its end: read forward
			s.Members = append(s.Members, ScaffoldMember{Contig: id, Orientation: Forward})
			exitLink, hasExit = endLink, true
		case beginUsed:
			// leaves through its begin: read as reverse complement
			s.Members = append(s.Members, ScaffoldMember{Contig: id, Orientation: Reverse})
			exitLink, hasExit = beginLink, true
		default:
			// no accepted links at all: trivial one-contig scaffold
			s.Members = append(s.Members, ScaffoldMember{Contig: id, Orientation: Forward})
		}
		visited[id] = true

		cur := id
		for hasExit {
			l := g.links[exitLink]
			s.Links = append(s.Links, l)
			s.Members[len(s.Members)-1].Gap = l.Gap

			var next string
			var entry contigEnd
			if l.From == cur {
				next, entry = l.To, l.toEnd()
			} else {
				next, entry = l.From, l.fromEnd()
			}

			orient := Forward
			if entry == endEnd {
				orient = Reverse
			}
			s.Members = append(s.Members, ScaffoldMember{Contig: next, Orientation: orient})
			visited[next] = true

			cur = next
			exitLink, hasExit = used[endpoint{cur, entry.opposite()}]
		}

		scaffolds = append(scaffolds, s)
	}

	return scaffolds
}
