// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Config holds the settings for one comparison run. It is built once
// (normally from command line flags) and passed by value to
// CompareCounts; nothing modifies it after that.
type Config struct {
	ScoreThresh float64
	All         bool
	MinCov      int
	MaxCov      int // 0 = no upper bound
	Skew        float64
	GenomeSize  int64
	Threads     int // <= 0 = GOMAXPROCS
	PCAFile     string
	NormFile    string
	Verbose     int
	Progress    bool

	// Progress bar destination; nil means os.Stderr.
	ProgressOutput io.Writer
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() Config {
	return Config{
		ScoreThresh: 0.5,
		MinCov:      1,
		GenomeSize:  6200000000,
	}
}

// Flags registers cfg's fields on flags.
func (cfg *Config) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&cfg.ScoreThresh, "score-thresh", cfg.ScoreThresh, "report a pair as same source if score ≤ `S`")
	flags.BoolVar(&cfg.All, "all", cfg.All, "output all pairs, not just those that pass the threshold")
	flags.IntVar(&cfg.MinCov, "min-cov", cfg.MinCov, "keep only sites with coverage ≥ `N`")
	flags.IntVar(&cfg.MaxCov, "max-cov", cfg.MaxCov, "keep only sites with coverage ≤ `N` (0 = no limit)")
	flags.Float64Var(&cfg.Skew, "skew", cfg.Skew, "divide score by (cov1*cov2)^`X` (0 = no correction)")
	flags.Int64Var(&cfg.GenomeSize, "genome-size", cfg.GenomeSize, "diploid genome size in `bases`, for coverage estimation")
	flags.IntVar(&cfg.Threads, "threads", cfg.Threads, "number of scoring threads (0 = number of CPUs)")
	flags.StringVar(&cfg.PCAFile, "pca", cfg.PCAFile, "PCA rotation `file` (.npy or text); enables the projected estimator, requires -norm")
	flags.StringVar(&cfg.NormFile, "norm", cfg.NormFile, "centering `file` (site, center per line) used with -pca")
	flags.Var((*verbosity)(&cfg.Verbose), "v", "increase verbosity (repeatable)")
	flags.IntVar(&cfg.Verbose, "verbose", cfg.Verbose, "set verbosity `level`")
}

// Check returns an error naming the first invalid parameter, if any.
func (cfg *Config) Check() error {
	switch {
	case cfg.MinCov < 0:
		return fmt.Errorf("invalid -min-cov %d: must be ≥ 0", cfg.MinCov)
	case cfg.MaxCov < 0:
		return fmt.Errorf("invalid -max-cov %d: must be ≥ 0", cfg.MaxCov)
	case cfg.MaxCov > 0 && cfg.MaxCov < cfg.MinCov:
		return fmt.Errorf("invalid -max-cov %d: less than -min-cov %d", cfg.MaxCov, cfg.MinCov)
	case cfg.Skew < 0:
		return fmt.Errorf("invalid -skew %g: must be ≥ 0", cfg.Skew)
	case cfg.GenomeSize < 0:
		return fmt.Errorf("invalid -genome-size %d: must be ≥ 0", cfg.GenomeSize)
	case (cfg.PCAFile == "") != (cfg.NormFile == ""):
		return errors.New("-pca and -norm must be given together")
	}
	return nil
}

func (cfg *Config) projected() bool {
	return cfg.PCAFile != "" && cfg.NormFile != ""
}

func (cfg *Config) threads() int {
	if cfg.Threads > 0 {
		return cfg.Threads
	}
	return runtime.GOMAXPROCS(0)
}

func (cfg *Config) coverageFilter() coverageFilter {
	return coverageFilter{MinCov: cfg.MinCov, MaxCov: cfg.MaxCov}
}

// LogLevel maps the verbosity count to a logrus level.
func (cfg *Config) LogLevel() log.Level {
	switch {
	case cfg.Verbose <= 0:
		return log.WarnLevel
	case cfg.Verbose == 1:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

// verbosity is a flag.Value that counts bare "-v" flags and also
// accepts an explicit level ("-v=2").
type verbosity int

func (v *verbosity) String() string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(int(*v))
}

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q", s)
	}
	*v = verbosity(n)
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }
