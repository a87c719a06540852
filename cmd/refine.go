package cmd

import (
	"github.com/harihara-subrahmaniam-muralidharan/binnacle/internal/binnacle"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// refineCmd represents the refine command
var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Extract scaffolds from an assembly graph and propagate bin labels across them",
	Long: `Extract scaffolds from an assembly graph and propagate bin labels across them

"binnacle refine" walks the assembly graph's linkage edges in confidence
order to partition the contigs into orientation-consistent scaffolds, then
resolves one bin label per scaffold by a length-weighted majority vote over
its members' contig-level labels. Contigs the upstream binner left
unclassified are rescued into the scaffold consensus when the vote is
decisive; ties and split votes are reported as "ambiguous" rather than
forced. With a per-base depth table the coverage along each scaffold is
scanned for changepoints first and suspect links are removed before
scaffolding.`,
	Run: binnacle.RunRefine,
}

func init() {
	rootCmd.AddCommand(refineCmd)

	refineCmd.Flags().StringP("graph", "g", "", "path to the assembly graph file")
	refineCmd.Flags().StringP("bins", "b", "", "path to the contig-to-bin table")
	refineCmd.Flags().StringP("depth", "d", "", "path to a per-base depth table for changepoint delinking (optional)")
	refineCmd.Flags().StringP("out", "o", "", "path to write the scaffold and bin output (JSON)")
	refineCmd.Flags().String("bins-out", "", "path to also write the refined bin table (TSV, optional)")
	refineCmd.Flags().Float64P("majority", "m", 0.5, "majority-vote threshold for resolving a scaffold's bin")
	refineCmd.Flags().IntP("workers", "w", 0, "workers for per-component scaffold extraction (0 = all CPUs)")
	refineCmd.Flags().Bool("lenient", false, "skip and log malformed bin/depth rows instead of failing")

	refineCmd.MarkFlagRequired("graph")
	refineCmd.MarkFlagRequired("bins")
	refineCmd.MarkFlagRequired("out")

	viper.BindPFlag("binning.majority-threshold", refineCmd.Flags().Lookup("majority"))
	viper.BindPFlag("workers", refineCmd.Flags().Lookup("workers"))
}
