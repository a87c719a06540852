package binnacle

import (
	"runtime"
	"time"

	"github.com/harihara-subrahmaniam-muralidharan/binnacle/config"
	"github.com/spf13/cobra"
)

// workerCount normalizes the configured worker setting; 0 or less
// means one worker per CPU.
func workerCount(conf *config.Config) int {
	if conf.Workers > 0 {
		return conf.Workers
	}
	return runtime.NumCPU()
}

// RunRefine is the entry for the refine command: scaffolds plus bin
// propagation. Fatal on malformed input so the process exits non-zero.
func RunRefine(cmd *cobra.Command, args []string) {
	flags, conf := parseCmdFlags(cmd)
	if err := Refine(flags, conf); err != nil {
		stderr.Fatal(err)
	}
}

// RunScaffolds is the entry for the scaffolds command: traversal only.
func RunScaffolds(cmd *cobra.Command, args []string) {
	flags, conf := parseCmdFlags(cmd)
	if err := Scaffolds(flags, conf); err != nil {
		stderr.Fatal(err)
	}
}

// Refine runs the full pipeline: load the graph and bin table, extract
// scaffolds, optionally delink at coverage changepoints and re-extract,
// resolve one bin per scaffold, and write the results.
func Refine(flags *Flags, conf *config.Config) error {
	start := time.Now()

	g, err := ReadGraph(flags.graph, conf.Graph.Pseudocount, conf.Graph.MinSupport)
	if err != nil {
		return err
	}
	bins, err := ReadBinTable(flags.bins, flags.lenient)
	if err != nil {
		return err
	}

	scaffolds, rejected := BuildScaffolds(g, workerCount(conf))
	AssignSpans(scaffolds, g)

	delinked := 0
	if flags.depth != "" {
		depths, err := ReadDepthTable(flags.depth, g, flags.lenient)
		if err != nil {
			return err
		}

		reduced, n := DelinkChangepoints(g, scaffolds, depths, conf.Changepoint)
		if n > 0 {
			g = reduced
			delinked = n
			scaffolds, rejected = BuildScaffolds(g, workerCount(conf))
			AssignSpans(scaffolds, g)
		}
	}

	calls, refined := PropagateBins(scaffolds, g, bins, conf.Binning.MajorityThreshold)

	out := buildOutput(
		flags.graph, flags.bins,
		scaffolds, calls, refined, rejected, delinked,
		time.Since(start).Seconds(),
	)
	if _, err := writeJSON(flags.out, out); err != nil {
		return err
	}
	if flags.binsOut != "" {
		if err := writeBinTSV(flags.binsOut, refined); err != nil {
			return err
		}
	}

	binned, ambiguous := 0, 0
	for _, c := range calls {
		switch c.Kind {
		case BinConcrete:
			binned++
		case BinAmbiguous:
			ambiguous++
		}
	}
	stderr.Printf(
		"%d contigs -> %d scaffolds (%d binned, %d ambiguous), %d contigs assigned, %d links delinked",
		g.NumContigs(), len(scaffolds), binned, ambiguous, len(refined), delinked,
	)

	return nil
}

// Scaffolds runs traversal only: load the graph, extract scaffolds,
// write them without bin calls.
func Scaffolds(flags *Flags, conf *config.Config) error {
	start := time.Now()

	g, err := ReadGraph(flags.graph, conf.Graph.Pseudocount, conf.Graph.MinSupport)
	if err != nil {
		return err
	}

	scaffolds, rejected := BuildScaffolds(g, workerCount(conf))
	AssignSpans(scaffolds, g)

	out := buildOutput(
		flags.graph, "",
		scaffolds, nil, nil, rejected, 0,
		time.Since(start).Seconds(),
	)
	if _, err := writeJSON(flags.out, out); err != nil {
		return err
	}

	stderr.Printf("%d contigs -> %d scaffolds", g.NumContigs(), len(scaffolds))

	return nil
}
