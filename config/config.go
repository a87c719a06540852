// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"log"
	"runtime"

	"github.com/spf13/viper"
)

// GraphConfig is settings for parsing and scoring the assembly graph.
type GraphConfig struct {
	// pseudocount added to a link's read-pair support when deriving its
	// confidence score: confidence = support / (support + pseudocount)
	Pseudocount float64 `mapstructure:"pseudocount"`

	// links with fewer supporting read pairs than this are dropped at load time
	MinSupport int `mapstructure:"min-support"`
}

// BinningConfig is settings for resolving a scaffold's bin label.
type BinningConfig struct {
	// fraction of a scaffold's total contig length that the winning bin's
	// weight must strictly exceed for the scaffold to take that label
	MajorityThreshold float64 `mapstructure:"majority-threshold"`
}

// ChangepointConfig is settings for coverage changepoint detection
// and contig delinking.
type ChangepointConfig struct {
	// sliding window size (bp) for the changepoint statistic
	Window int `mapstructure:"window"`

	// "ratio" for the windowed mean-ratio statistic, "zscore" for the
	// two-sample z statistic
	Method string `mapstructure:"method"`

	// percentile above which a changepoint peak is called an outlier
	OutlierPercentile float64 `mapstructure:"outlier-percentile"`

	// outliers closer together than this (bp) are collapsed to the larger one
	NeighborWindow int `mapstructure:"neighbor-window"`

	// max distance (bp) from a changepoint to a contig boundary for delinking
	PositionCutoff int `mapstructure:"position-cutoff"`
}

// Config is the root-level settings struct and is a mix of settings
// available in binnacle.yaml and those available from the command line.
type Config struct {
	// Graph load/score settings
	Graph GraphConfig `mapstructure:"graph"`

	// Binning vote settings
	Binning BinningConfig `mapstructure:"binning"`

	// Changepoint/delinking settings
	Changepoint ChangepointConfig `mapstructure:"changepoint"`

	// number of workers for per-component scaffold extraction
	Workers int `mapstructure:"workers"`
}

// setDefaults registers the default value for every setting with viper.
// Called before unmarshalling so a partial config file or a partial set
// of bound flags still yields a complete Config.
func setDefaults() {
	viper.SetDefault("graph.pseudocount", 2.0)
	viper.SetDefault("graph.min-support", 0)
	viper.SetDefault("binning.majority-threshold", 0.5)
	viper.SetDefault("changepoint.window", 1500)
	viper.SetDefault("changepoint.method", "ratio")
	viper.SetDefault("changepoint.outlier-percentile", 98.5)
	viper.SetDefault("changepoint.neighbor-window", 100)
	viper.SetDefault("changepoint.position-cutoff", 100)
	viper.SetDefault("workers", runtime.NumCPU())
}

// New returns a new Config struct populated by Viper settings (either
// from a local binnacle.yaml) and/or command line arguments.
func New() *Config {
	setDefaults()

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("unable to decode settings into struct: %v", err)
	}

	return &c
}
