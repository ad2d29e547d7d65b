// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	log "github.com/sirupsen/logrus"
)

// coverageFilter drops sites whose total coverage is outside
// [MinCov, MaxCov]. Zero-coverage sites are always dropped.
type coverageFilter struct {
	MinCov int
	MaxCov int // 0 = no upper bound
}

func (f *coverageFilter) Flags(flags *flag.FlagSet) {
	flags.IntVar(&f.MinCov, "min-cov", 1, "keep only sites with coverage ≥ `N`")
	flags.IntVar(&f.MaxCov, "max-cov", 0, "keep only sites with coverage ≤ `N` (0 = no limit)")
}

func (f coverageFilter) Keep(cov int) bool {
	return cov > 0 && cov >= f.MinCov && (f.MaxCov <= 0 || cov <= f.MaxCov)
}

// Apply returns a new slice containing the records that pass the
// filter, in their original order.
func (f coverageFilter) Apply(sites []SiteRecord) []SiteRecord {
	out := make([]SiteRecord, 0, len(sites))
	for _, r := range sites {
		if f.Keep(r.Coverage()) {
			out = append(out, r)
		}
	}
	return out
}

type filtercmd struct {
	filter coverageFilter
}

func (cmd *filtercmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "-", "input count `file` (.gz ok)")
	outputFilename := flags.String("o", "-", "output count `file` (.gz to compress)")
	cmd.filter.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	var input io.ReadCloser
	if *inputFilename == "-" {
		input = io.NopCloser(stdin)
	} else {
		input, err = zopen(*inputFilename)
		if err != nil {
			return 1
		}
		defer input.Close()
	}
	log.Printf("reading %s", *inputFilename)
	cf, err := readCounts(input, *inputFilename)
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}
	kept := cmd.filter.Apply(cf.records)
	log.Printf("filtering done, kept %d of %d sites", len(kept), len(cf.records))

	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	err = writeCounts(bufw, cf.header, kept)
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

// writeCounts writes records in the format readCounts accepts.
func writeCounts(w io.Writer, header []string, records []SiteRecord) error {
	for _, h := range header {
		if _, err := fmt.Fprintln(w, h); err != nil {
			return err
		}
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\n", r.Site, r.A, r.B); err != nil {
			return err
		}
	}
	return nil
}
