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
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// projectcmd writes the projected vector of each input sample to a
// numpy matrix, one row per sample.
type projectcmd struct {
	filter coverageFilter
}

func (cmd *projectcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

func (cmd *projectcmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	pcaFilename := flags.String("pca", "", "PCA rotation `file` (.npy or text)")
	normFilename := flags.String("norm", "", "centering `file` (site, center per line)")
	outputFilename := flags.String("o", "-", "output numpy `file`")
	idsFilename := flags.String("ids", "", "write row index and sample ID to csv `file`")
	threads := flags.Int("threads", 0, "number of threads (0 = number of CPUs)")
	cmd.filter.Flags(flags)
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return err
	}
	inputs := flags.Args()
	if len(inputs) == 0 {
		return errors.New("no input files specified")
	}
	if *pcaFilename == "" || *normFilename == "" {
		return errors.New("-pca and -norm are required")
	}
	if *threads <= 0 {
		*threads = runtime.GOMAXPROCS(0)
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	model, err := loadProjectionModel(*pcaFilename, *normFilename)
	if err != nil {
		return err
	}
	samples, err := loadSamples(inputs, cmd.filter, *threads)
	if err != nil {
		return err
	}
	projectSamples(model, samples, *threads)

	rows, cols := len(samples), model.Components()
	out := make([]float64, rows*cols)
	for i, s := range samples {
		for j := 0; j < cols; j++ {
			if s.projectErr != nil {
				out[i*cols+j] = math.NaN()
			} else {
				out[i*cols+j] = s.Projected[j]
			}
		}
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	npw.Shape = []int{rows, cols}
	log.Printf("writing numpy: %d rows, %d cols", rows, cols)
	err = npw.WriteFloat64(out)
	if err != nil {
		return fmt.Errorf("WriteFloat64: %w", err)
	}
	err = bufw.Flush()
	if err != nil {
		return err
	}
	err = output.Close()
	if err != nil {
		return err
	}

	if *idsFilename != "" {
		err = writeSampleIDs(*idsFilename, samples)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeSampleIDs(fnm string, samples []*Sample) error {
	log.Infof("writing sample IDs to %s", fnm)
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprint(f, "Index,SampleID\n")
	if err != nil {
		return err
	}
	for i, s := range samples {
		_, err = fmt.Fprintf(f, "%d,%s\n", i, s.ID)
		if err != nil {
			return fmt.Errorf("write %s: %w", fnm, err)
		}
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", fnm, err)
	}
	return nil
}
