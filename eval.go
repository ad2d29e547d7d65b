// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

type evalcmd struct{}

func (cmd *evalcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage error")

func (cmd *evalcmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := DefaultConfig()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] FILE FILE [FILE...]\n\nCompare allele count profiles of all pairs of samples.\n\nOptions:\n", prog)
		flags.PrintDefaults()
	}
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	outputFilename := flags.String("o", "-", "output `file`")
	flags.BoolVar(&cfg.Progress, "progress", isTerminal(stderr), "show progress bar while scoring")
	cfg.Flags(flags)
	cfg.ProgressOutput = stderr
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	if err = cfg.Check(); err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	inputs := flags.Args()
	if len(inputs) < 2 {
		return fmt.Errorf("%w: need at least 2 input files (try -help)", errUsage)
	}
	log.SetLevel(cfg.LogLevel())

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	cmp, err := CompareCounts(cfg, inputs)
	if err != nil {
		return err
	}
	log.Info("writing results")
	output, err := zcreate(*outputFilename, stdout)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	err = cmp.WriteTable(bufw)
	if err != nil {
		return err
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	return output.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
