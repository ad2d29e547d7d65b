// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"runtime"

	log "github.com/sirupsen/logrus"
)

type statscmd struct {
	filter     coverageFilter
	genomeSize int64
}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	outputFilename := flags.String("o", "-", "output `file`")
	flags.Int64Var(&cmd.genomeSize, "genome-size", DefaultConfig().GenomeSize, "diploid genome size in `bases`, for coverage estimation")
	cmd.filter.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}
	inputs := flags.Args()
	if len(inputs) == 0 {
		err = errors.New("no input files specified")
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	samples, err := loadSamples(inputs, cmd.filter, runtime.GOMAXPROCS(0))
	if err != nil {
		return 1
	}

	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	err = cmd.doStats(samples, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

type sampleStats struct {
	Sample           string
	Path             string
	Sites            int
	MeanCoverage     float64
	StdCoverage      float64
	ErrorRate        float64
	TotalKmers       int64 `json:",omitempty"`
	KmerSize         int   `json:",omitempty"`
	ExpectedCoverage float64
	Digest           string
}

func (cmd *statscmd) doStats(samples []*Sample, output io.Writer) error {
	ret := make([]sampleStats, 0, len(samples))
	for _, s := range samples {
		mean, std := s.CoverageStats()
		ret = append(ret, sampleStats{
			Sample:           s.ID,
			Path:             s.Path,
			Sites:            len(s.Sites),
			MeanCoverage:     mean,
			StdCoverage:      std,
			ErrorRate:        s.ErrorRate(),
			TotalKmers:       s.TotalKmers,
			KmerSize:         s.KmerSize,
			ExpectedCoverage: s.ExpectedCoverage(cmd.genomeSize),
			Digest:           hex.EncodeToString(s.Digest[:]),
		})
	}
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}
