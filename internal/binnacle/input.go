package binnacle

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/harihara-subrahmaniam-muralidharan/binnacle/config"
	"github.com/spf13/cobra"
)

var (
	// stderr is for logging to Stderr (without an annoying timestamp)
	stderr = log.New(os.Stderr, "", 0)
)

// Flags contains parsed cobra flags like "graph", "bins", "out" that are
// used by multiple commands.
type Flags struct {
	// path to the assembly graph file
	graph string

	// path to the contig-to-bin table
	bins string

	// path to the per-base depth table (optional)
	depth string

	// path to write the JSON output to
	out string

	// path to also write the refined bin table to (optional)
	binsOut string

	// skip and log malformed bin/depth rows instead of failing
	lenient bool
}

// NewFlags makes a new flags object manually. for testing.
func NewFlags(graph, bins, depth, out, binsOut string, lenient bool) (*Flags, *config.Config) {
	return &Flags{
		graph:   graph,
		bins:    bins,
		depth:   depth,
		out:     out,
		binsOut: binsOut,
		lenient: lenient,
	}, config.New()
}

// parseCmdFlags gathers the graph path, bin table path, etc from a cobra
// cmd object. Returns Flags and a Config struct for Refine or Scaffolds.
func parseCmdFlags(cmd *cobra.Command) (*Flags, *config.Config) {
	var err error
	fs := &Flags{} // parsed flags
	c := config.New()

	if fs.graph, err = cmd.Flags().GetString("graph"); fs.graph == "" || err != nil {
		cmd.Help()
		stderr.Fatal("no assembly graph path")
	}

	// bins is only a flag on commands that propagate labels
	if cmd.Flags().Lookup("bins") != nil {
		if fs.bins, err = cmd.Flags().GetString("bins"); fs.bins == "" || err != nil {
			cmd.Help()
			stderr.Fatal("no bin table path")
		}
	}

	if cmd.Flags().Lookup("depth") != nil {
		fs.depth, _ = cmd.Flags().GetString("depth")
	}

	if fs.out, err = cmd.Flags().GetString("out"); fs.out == "" || err != nil {
		cmd.Help()
		stderr.Fatal("no output path")
	}

	if cmd.Flags().Lookup("bins-out") != nil {
		fs.binsOut, _ = cmd.Flags().GetString("bins-out")
	}

	if cmd.Flags().Lookup("lenient") != nil {
		fs.lenient, _ = cmd.Flags().GetBool("lenient")
	}

	return fs, c
}

// ReadGraph parses the assembly graph file into a Graph or fails with a
// MalformedGraphError identifying the offending record. Atomic: a partial
// graph is never returned.
//
// The format is line-record based:
//
//	S <contigID> <length> [<coverage>]
//	L <fromID> <+|-> <toID> <+|-> <support> <gap>
//
// Blank lines and lines starting with "#" are skipped. Exact duplicate
// links are merged by summing support. A second link on the same contig
// pair is kept when its orientation combination is the full flip of the
// first (it attaches to the opposite ends, forming a two-contig cycle);
// any other combination conflicts and is malformed.
func ReadGraph(path string, pseudocount float64, minSupport int) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	g := NewGraph()
	type pendingLink struct {
		link Link
		line int
	}
	var pending []pendingLink
	seen := make(map[linkKey]int)     // canonical link -> pending index
	pairs := make(map[string]linkKey) // "from\x00to" -> first combination seen

	malformed := func(line int, format string, args ...interface{}) error {
		return &MalformedGraphError{Path: path, Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "S":
			if len(fields) != 3 && len(fields) != 4 {
				return nil, malformed(lineNo, "contig record needs 2 or 3 fields, got %d", len(fields)-1)
			}
			length, err := strconv.Atoi(fields[2])
			if err != nil || length <= 0 {
				return nil, malformed(lineNo, "bad contig length %q", fields[2])
			}
			c := Contig{ID: fields[1], Length: length}
			if len(fields) == 4 {
				if c.Coverage, err = strconv.ParseFloat(fields[3], 64); err != nil {
					return nil, malformed(lineNo, "bad contig coverage %q", fields[3])
				}
			}
			if !g.addContig(c) {
				return nil, malformed(lineNo, "contig %s declared twice", c.ID)
			}

		case "L":
			if len(fields) != 7 {
				return nil, malformed(lineNo, "link record needs 6 fields, got %d", len(fields)-1)
			}
			fromOrient, err := parseOrientation(fields[2])
			if err != nil {
				return nil, malformed(lineNo, "bad source orientation %q", fields[2])
			}
			toOrient, err := parseOrientation(fields[4])
			if err != nil {
				return nil, malformed(lineNo, "bad target orientation %q", fields[4])
			}
			support, err := strconv.Atoi(fields[5])
			if err != nil {
				return nil, malformed(lineNo, "bad link support %q", fields[5])
			}
			if support < 0 {
				return nil, malformed(lineNo, "negative link support %d", support)
			}
			gap, err := strconv.Atoi(fields[6])
			if err != nil {
				return nil, malformed(lineNo, "bad link gap %q", fields[6])
			}

			l := Link{
				From:       fields[1],
				FromOrient: fromOrient,
				To:         fields[3],
				ToOrient:   toOrient,
				Support:    support,
				Gap:        gap,
			}
			if l.From == l.To {
				return nil, malformed(lineNo, "self-loop on contig %s", l.From)
			}
			l.canonicalize()

			if i, dup := seen[l.key()]; dup {
				// exact duplicate: pool the read-pair evidence, keep the first gap
				pending[i].link.Support += l.Support
				continue
			}
			pairKey := l.From + "\x00" + l.To
			if first, dup := pairs[pairKey]; dup {
				// the fully flipped combination attaches to the opposite
				// ends of both contigs and stands as its own link (a
				// two-contig cycle the traversal rejects); any other
				// combination shares an attachment end and contradicts
				// the earlier record
				if first.fromOrient != l.FromOrient.flip() || first.toOrient != l.ToOrient.flip() {
					return nil, malformed(lineNo,
						"duplicate link %s -- %s with conflicting orientation", l.From, l.To)
				}
			} else {
				pairs[pairKey] = l.key()
			}
			seen[l.key()] = len(pending)
			pending = append(pending, pendingLink{link: l, line: lineNo})

		default:
			return nil, malformed(lineNo, "unknown record type %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	// links may reference contigs declared later in the file, so
	// reference checks happen after the pass
	for _, p := range pending {
		if _, ok := g.index[p.link.From]; !ok {
			return nil, malformed(p.line, "link references unknown contig %s", p.link.From)
		}
		if _, ok := g.index[p.link.To]; !ok {
			return nil, malformed(p.line, "link references unknown contig %s", p.link.To)
		}
		if p.link.Support < minSupport {
			continue
		}
		p.link.Confidence = confidence(p.link.Support, pseudocount)
		g.addLink(p.link)
	}

	return g, nil
}

// confidence maps a link's read-pair support to a score in [0, 1).
// Monotonically non-decreasing in support; the pseudocount damps
// single-pair links without flattening well-supported ones.
func confidence(support int, pseudocount float64) float64 {
	return float64(support) / (float64(support) + pseudocount)
}

// parseOrientation reads a +/- orientation sign.
func parseOrientation(s string) (Orientation, error) {
	switch s {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	}
	return Forward, fmt.Errorf("orientation must be + or -, got %q", s)
}

// BinTable is the contig-to-bin mapping. A contig absent from the table
// is unbinned, not an error.
type BinTable map[string]string

// ReadBinTable parses the two-column (contig, bin) table produced by the
// upstream binner. In strict mode any unparseable row or duplicate contig
// with a conflicting label is fatal; in lenient mode the offending row is
// skipped and logged (first label wins).
func ReadBinTable(path string, lenient bool) (BinTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bin table: %w", err)
	}
	defer f.Close()

	bins := make(BinTable)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			if lenient {
				stderr.Printf("%s:%d: skipping row with %d fields", path, lineNo, len(fields))
				continue
			}
			return nil, &MalformedBinTableError{Path: path, Line: lineNo,
				Reason: fmt.Sprintf("row needs 2 fields, got %d", len(fields))}
		}

		contig, bin := fields[0], fields[1]
		if prev, dup := bins[contig]; dup && prev != bin {
			if lenient {
				stderr.Printf("%s:%d: contig %s already assigned to %s, keeping it", path, lineNo, contig, prev)
				continue
			}
			return nil, &MalformedBinTableError{Path: path, Line: lineNo,
				Reason: fmt.Sprintf("contig %s assigned to both %s and %s", contig, prev, bin)}
		}
		bins[contig] = bin
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bin table: %w", err)
	}

	return bins, nil
}

// DepthTable maps each contig to its per-base read depth vector.
type DepthTable map[string][]float64

// ReadDepthTable parses a 4-column interval table (contig, start, end,
// depth) with half-open intervals, as produced by genomecov-style tools,
// and expands it to per-base vectors for every contig in the graph.
//
// In strict mode the intervals must exactly tile [0, length) for every
// contig and reference only known contigs; in lenient mode gaps are
// zero-filled and unknown-contig rows are skipped and logged.
func ReadDepthTable(path string, g *Graph, lenient bool) (DepthTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open depth table: %w", err)
	}
	defer f.Close()

	depths := make(DepthTable, g.NumContigs())
	for _, id := range g.ContigIDs() {
		c, _ := g.Contig(id)
		depths[id] = make([]float64, c.Length)
	}
	covered := make(map[string]int) // bases written per contig

	malformed := func(line int, format string, args ...interface{}) error {
		return &MalformedDepthTableError{Path: path, Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			if lenient {
				stderr.Printf("%s:%d: skipping row with %d fields", path, lineNo, len(fields))
				continue
			}
			return nil, malformed(lineNo, "row needs 4 fields, got %d", len(fields))
		}

		contig := fields[0]
		vec, known := depths[contig]
		if !known {
			if lenient {
				stderr.Printf("%s:%d: skipping unknown contig %s", path, lineNo, contig)
				continue
			}
			return nil, malformed(lineNo, "unknown contig %s", contig)
		}

		start, err1 := strconv.Atoi(fields[1])
		end, err2 := strconv.Atoi(fields[2])
		depth, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || start < 0 || end < start {
			if lenient {
				stderr.Printf("%s:%d: skipping unparseable interval", path, lineNo)
				continue
			}
			return nil, malformed(lineNo, "bad interval [%s, %s) depth %s", fields[1], fields[2], fields[3])
		}
		if end > len(vec) {
			if lenient {
				stderr.Printf("%s:%d: clamping interval past contig end", path, lineNo)
				end = len(vec)
			} else {
				return nil, malformed(lineNo, "interval end %d past contig %s length %d", end, contig, len(vec))
			}
		}

		for i := start; i < end; i++ {
			vec[i] = depth
		}
		covered[contig] += end - start
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read depth table: %w", err)
	}

	if !lenient {
		// every contig must be fully tiled; sort for a stable first error
		ids := make([]string, 0, len(depths))
		for id := range depths {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if covered[id] < len(depths[id]) {
				return nil, malformed(0, "contig %s only covered for %d of %d bp", id, covered[id], len(depths[id]))
			}
		}
	}

	return depths, nil
}
