// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

const tableHeader = "sample1\tsample2\tscore\tsame\tsites\tcov1\tcov2\tdegenerate\tpvalue\terr1\terr2\tnote\n"

// WriteTable writes the reported pairs as a tab-separated table with
// a header row.
func (cmp *Comparison) WriteTable(w io.Writer) error {
	errRate := make([]float64, len(cmp.Samples))
	for i, s := range cmp.Samples {
		errRate[i] = s.ErrorRate()
	}
	projected := cmp.Config.projected()
	bufw := bufio.NewWriter(w)
	if _, err := bufw.WriteString(tableHeader); err != nil {
		return err
	}
	for _, r := range cmp.Reported() {
		same := "FALSE"
		if r.Err != nil {
			same = "NA"
		} else if r.Same {
			same = "TRUE"
		}
		note := "-"
		if r.Err != nil {
			note = strings.ReplaceAll(r.Err.Error(), "\t", " ")
		} else if r.Identical {
			note = "identical_input"
		}
		sites, degenerate := fmt.Sprint(r.Sites), fmt.Sprint(r.Degenerate)
		if projected {
			sites, degenerate = "NA", "NA"
		}
		_, err := fmt.Fprintf(bufw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.5f\t%.5f\t%s\n",
			r.SampleA, r.SampleB,
			formatFloat("%.6f", r.Score),
			same,
			sites,
			formatFloat("%.2f", r.CovA),
			formatFloat("%.2f", r.CovB),
			degenerate,
			formatFloat("%.3e", r.Pvalue),
			errRate[r.A], errRate[r.B],
			note)
		if err != nil {
			return err
		}
	}
	return bufw.Flush()
}

func formatFloat(format string, f float64) string {
	if math.IsNaN(f) {
		return "NA"
	}
	return fmt.Sprintf(format, f)
}
