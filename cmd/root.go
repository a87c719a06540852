// Package cmd is for command line interactions with the binnacle application
package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "binnacle",
	Short: `Reconcile a metagenomic assembly graph with contig-level bins.
Extract scaffolds from linkage evidence and propagate bin labels across them`,
	Version: "0.2.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig reads an optional binnacle.yaml and BINNACLE_* env
// variables into viper before any command runs.
func initConfig() {
	viper.SetConfigName("binnacle")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("binnacle")
	viper.AutomaticEnv()

	// the config file is optional, flags and defaults cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("failed to read config file: %v", err)
		}
	}
}
