package cmd

import (
	"github.com/harihara-subrahmaniam-muralidharan/binnacle/internal/binnacle"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scaffoldsCmd represents the scaffolds command
var scaffoldsCmd = &cobra.Command{
	Use:   "scaffolds",
	Short: "Extract scaffolds from an assembly graph without bin propagation",
	Long: `Extract scaffolds from an assembly graph without bin propagation

Walks the graph's linkage edges in confidence order and writes the
resulting scaffolds (member contigs, orientations, gaps, and coordinates)
without resolving bins. Useful for inspecting the traversal before running
"binnacle refine".`,
	Run: binnacle.RunScaffolds,
}

func init() {
	rootCmd.AddCommand(scaffoldsCmd)

	scaffoldsCmd.Flags().StringP("graph", "g", "", "path to the assembly graph file")
	scaffoldsCmd.Flags().StringP("out", "o", "", "path to write the scaffold output (JSON)")
	scaffoldsCmd.Flags().IntP("workers", "w", 0, "workers for per-component scaffold extraction (0 = all CPUs)")

	scaffoldsCmd.MarkFlagRequired("graph")
	scaffoldsCmd.MarkFlagRequired("out")

	viper.BindPFlag("workers", scaffoldsCmd.Flags().Lookup("workers"))
}
