package binnacle

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemberRecord is one contig of a scaffold in the output.
type MemberRecord struct {
	// Contig is the member's contig ID.
	Contig string `json:"contig"`

	// Orientation sign, "+" or "-".
	Orientation string `json:"orientation"`

	// Gap to the next member in bp; 0 for the last member.
	Gap int `json:"gap"`

	// Start and End are the member's global coordinates in the scaffold.
	Start int `json:"start"`
	End   int `json:"end"`
}

// ScaffoldRecord is one scaffold with its resolved bin in the output.
type ScaffoldRecord struct {
	// ID of the scaffold, stable across runs on the same input.
	ID int `json:"id"`

	// Status of the bin call: "binned", "ambiguous" or "unbinned".
	Status string `json:"status"`

	// Bin is the resolved label; omitted unless Status is "binned".
	Bin string `json:"bin,omitempty"`

	// Length is the scaffold's extent in bp, gaps included.
	Length int `json:"length"`

	// Members in traversal order.
	Members []MemberRecord `json:"members"`
}

// Diagnostics summarizes the non-fatal events of a run.
type Diagnostics struct {
	// LinksAccepted is the number of links joined into scaffolds.
	LinksAccepted int `json:"linksAccepted"`

	// LinksRejectedOccupied counts links passed over because a
	// higher-confidence link claimed one of their contig ends.
	LinksRejectedOccupied int `json:"linksRejectedOccupied"`

	// LinksRejectedCycle counts cycle-closing links passed over.
	LinksRejectedCycle int `json:"linksRejectedCycle"`

	// LinksDelinked counts links removed by changepoint delinking.
	LinksDelinked int `json:"linksDelinked"`
}

// Output is a struct containing the scaffold and binning results of a run.
type Output struct {
	// RunID is a fresh identifier for this invocation.
	RunID string `json:"runId"`

	// Time, ex: "2018-01-01 20:41:00"
	Time string `json:"time"`

	// Execution is the number of seconds it took to execute the command
	Execution float64 `json:"execution"`

	// Graph is the input assembly graph path.
	Graph string `json:"graph"`

	// Bins is the input bin table path, empty for scaffold-only runs.
	Bins string `json:"bins,omitempty"`

	// Scaffolds ordered by ID.
	Scaffolds []ScaffoldRecord `json:"scaffolds"`

	// BinAssignments is the refined contig-to-bin table.
	BinAssignments map[string]string `json:"binAssignments,omitempty"`

	// Diagnostics of the traversal.
	Diagnostics Diagnostics `json:"diagnostics"`
}

// buildOutput assembles the Output document from a finished run.
func buildOutput(
	graphPath, binsPath string,
	scaffolds []Scaffold,
	calls []BinCall,
	refined BinTable,
	rejected []RejectedLink,
	delinked int,
	seconds float64,
) Output {
	t := time.Now()
	timestamp := fmt.Sprintf(
		"%d/%02d/%02d %02d:%02d:%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
	)

	records := make([]ScaffoldRecord, 0, len(scaffolds))
	accepted := 0
	for i, s := range scaffolds {
		accepted += len(s.Links)

		r := ScaffoldRecord{
			ID:     s.ID,
			Status: BinUnbinned.String(),
			Length: s.Length,
		}
		if calls != nil {
			r.Status = calls[i].Kind.String()
			r.Bin = calls[i].Bin
		}
		for _, m := range s.Members {
			r.Members = append(r.Members, MemberRecord{
				Contig:      m.Contig,
				Orientation: m.Orientation.String(),
				Gap:         m.Gap,
				Start:       m.Span.Start,
				End:         m.Span.End,
			})
		}
		records = append(records, r)
	}

	diag := Diagnostics{LinksAccepted: accepted, LinksDelinked: delinked}
	for _, r := range rejected {
		if r.Reason == RejectCycleClosing {
			diag.LinksRejectedCycle++
		} else {
			diag.LinksRejectedOccupied++
		}
	}

	return Output{
		RunID:          uuid.NewString(),
		Time:           timestamp,
		Execution:      seconds,
		Graph:          graphPath,
		Bins:           binsPath,
		Scaffolds:      records,
		BinAssignments: refined,
		Diagnostics:    diag,
	}
}

// writeJSON serializes the output document to the filename requested.
func writeJSON(filename string, out Output) ([]byte, error) {
	output, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize output: %v", err)
	}

	if err = os.WriteFile(filename, output, 0666); err != nil {
		return output, fmt.Errorf("failed to write the output: %v", err)
	}

	return output, nil
}

// writeBinTSV writes the refined contig-to-bin table as a two-column
// TSV, rows sorted by contig ID, for downstream extraction and
// quality-evaluation tooling.
func writeBinTSV(filename string, bins BinTable) error {
	contigs := make([]string, 0, len(bins))
	for contig := range bins {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)

	var sb strings.Builder
	sb.WriteString("contig\tbin\n")
	for _, contig := range contigs {
		sb.WriteString(contig)
		sb.WriteByte('\t')
		sb.WriteString(bins[contig])
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(filename, []byte(sb.String()), 0666); err != nil {
		return fmt.Errorf("failed to write the bin table: %v", err)
	}
	return nil
}
