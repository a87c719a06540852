// Package binnacle reconciles a metagenomic assembly graph with a
// contig-level binning: it extracts scaffolds (orientation-consistent
// chains of contigs over high-confidence linkage edges) and propagates
// bin labels across each scaffold's members.
package binnacle

import (
	"sort"
)

// Orientation is the direction a contig is read in within a scaffold:
// Forward for its original sequence, Reverse for its reverse complement.
type Orientation int8

const (
	// Forward reads the contig in its original direction.
	Forward Orientation = iota

	// Reverse reads the contig as its reverse complement.
	Reverse
)

// String returns the sign used for the orientation in graph and output files.
func (o Orientation) String() string {
	if o == Reverse {
		return "-"
	}
	return "+"
}

// flip returns the opposite orientation.
func (o Orientation) flip() Orientation {
	if o == Forward {
		return Reverse
	}
	return Forward
}

// contigEnd is one of a contig's two ends. Every contig has a begin (5')
// and an end (3'); linkage edges attach to ends, not to whole contigs.
type contigEnd int8

const (
	endBegin contigEnd = iota
	endEnd
)

// opposite returns the other end of the same contig.
func (e contigEnd) opposite() contigEnd {
	if e == endBegin {
		return endEnd
	}
	return endBegin
}

// endpoint is a (contig, end) pair, the key for adjacency lookups.
type endpoint struct {
	contig string
	end    contigEnd
}

// Contig is a node of the assembly graph. Immutable once loaded; bin
// labels live in the BinTable, never on the contig itself.
type Contig struct {
	// ID is the contig's name in the assembly.
	ID string

	// Length of the contig in bp.
	Length int

	// Coverage is the contig's mean read depth as reported by the
	// assembler, or 0 when the graph file omitted it.
	Coverage float64
}

// Link is a linkage edge between two contig ends, inferred from
// mate-pair or paired-end evidence.
//
// The orientation signs fix which ends the link attaches to: "+" on the
// source means the link leaves the contig's end, "-" its begin; "+" on
// the target means the link enters at the contig's begin, "-" at its end.
// Links are stored in canonical form (From <= To lexicographically), so
// a link and its reverse complement are the same record.
type Link struct {
	// From is the source contig ID.
	From string

	// FromOrient is the source orientation sign.
	FromOrient Orientation

	// To is the target contig ID.
	To string

	// ToOrient is the target orientation sign.
	ToOrient Orientation

	// Support is the number of read pairs corroborating the link.
	Support int

	// Gap is the estimated distance in bp between the two contigs.
	// Negative for overlaps.
	Gap int

	// Confidence is derived from Support at load time and is
	// monotonically non-decreasing in it.
	Confidence float64
}

// linkKey identifies a link by its endpoints and orientations.
type linkKey struct {
	from, to             string
	fromOrient, toOrient Orientation
}

func (l *Link) key() linkKey {
	return linkKey{l.From, l.To, l.FromOrient, l.ToOrient}
}

// canonicalize rewrites the link so From <= To, flipping both orientation
// signs when the endpoints swap. L A + B + and L B - A - describe the same
// adjacency and canonicalize to the same record.
func (l *Link) canonicalize() {
	if l.From <= l.To {
		return
	}
	l.From, l.To = l.To, l.From
	l.FromOrient, l.ToOrient = l.ToOrient.flip(), l.FromOrient.flip()
}

// fromEnd is the end of the source contig the link leaves from.
func (l *Link) fromEnd() contigEnd {
	if l.FromOrient == Forward {
		return endEnd
	}
	return endBegin
}

// toEnd is the end of the target contig the link enters at.
func (l *Link) toEnd() contigEnd {
	if l.ToOrient == Forward {
		return endBegin
	}
	return endEnd
}

// Graph is the in-memory assembly graph: contigs and links in flat
// arenas plus an adjacency index keyed by contig end. It only stores
// and answers adjacency queries; traversal lives in scaffold.go.
//
// Invariants, enforced at load time: every link references two declared
// contigs, no self-loops, no two links sharing an attachment end on the
// same contig pair.
type Graph struct {
	contigs []Contig
	index   map[string]int

	links []Link
	adj   map[endpoint][]int
}

// NewGraph returns an empty assembly graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		adj:   make(map[endpoint][]int),
	}
}

// addContig appends a contig to the arena. Returns false if the ID is
// already present.
func (g *Graph) addContig(c Contig) bool {
	if _, dup := g.index[c.ID]; dup {
		return false
	}
	g.index[c.ID] = len(g.contigs)
	g.contigs = append(g.contigs, c)
	return true
}

// addLink appends a canonicalized link to the arena and indexes both
// of its endpoints. The loader has already validated it.
func (g *Graph) addLink(l Link) {
	i := len(g.links)
	g.links = append(g.links, l)
	g.adj[endpoint{l.From, l.fromEnd()}] = append(g.adj[endpoint{l.From, l.fromEnd()}], i)
	g.adj[endpoint{l.To, l.toEnd()}] = append(g.adj[endpoint{l.To, l.toEnd()}], i)
}

// Contig returns the contig with the given ID.
func (g *Graph) Contig(id string) (Contig, bool) {
	i, ok := g.index[id]
	if !ok {
		return Contig{}, false
	}
	return g.contigs[i], true
}

// ContigIDs returns every contig ID in ascending order.
func (g *Graph) ContigIDs() []string {
	ids := make([]string, 0, len(g.contigs))
	for _, c := range g.contigs {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// NumContigs is the number of contigs in the graph.
func (g *Graph) NumContigs() int { return len(g.contigs) }

// NumLinks is the number of links in the graph.
func (g *Graph) NumLinks() int { return len(g.links) }

// linksAt returns the arena indices of the links touching an endpoint.
func (g *Graph) linksAt(ep endpoint) []int { return g.adj[ep] }

// WithoutLinks returns a copy of the graph with the given links removed.
// Contigs are shared; the link arena and adjacency index are rebuilt.
func (g *Graph) WithoutLinks(drop map[linkKey]bool) *Graph {
	out := &Graph{
		contigs: g.contigs,
		index:   g.index,
		adj:     make(map[endpoint][]int),
	}
	for _, l := range g.links {
		if drop[l.key()] {
			continue
		}
		out.addLink(l)
	}
	return out
}

// component is a connected component of the graph: its member contigs
// and the arena indices of the links among them.
type component struct {
	contigs []string
	links   []int
}

// components partitions the linked part of the graph into connected
// components, ordered by their smallest member contig ID. Contigs with
// no links are not returned; they become singleton scaffolds directly.
func (g *Graph) components() []component {
	parent := make(map[string]string, len(g.contigs))
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			parent[x] = x
			return x
		}
		if p == x {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, l := range g.links {
		union(l.From, l.To)
	}

	byRoot := make(map[string]*component)
	for id := range parent {
		root := find(id)
		c, ok := byRoot[root]
		if !ok {
			c = &component{}
			byRoot[root] = c
		}
		c.contigs = append(c.contigs, id)
	}
	for i, l := range g.links {
		c := byRoot[find(l.From)]
		c.links = append(c.links, i)
	}

	comps := make([]component, 0, len(byRoot))
	for _, c := range byRoot {
		sort.Strings(c.contigs)
		sort.Ints(c.links)
		comps = append(comps, *c)
	}
	sort.Slice(comps, func(i, j int) bool {
		return comps[i].contigs[0] < comps[j].contigs[0]
	})
	return comps
}
