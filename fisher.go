// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Relative tolerance used when deciding whether a table is at least
// as extreme as the observed one, so that tables with equal
// probability are not split by rounding error.
var fisherRelErr = math.Log1p(1e-7)

// contingencyTable is a 2x2 table of allele counts at one site. Each
// row is a sample: {A, B} are the first sample's allele counts, {C, D}
// the second's.
type contingencyTable struct {
	A, B, C, D int
}

// canonical returns t with its rows in a fixed order, so the two
// samples of a pair can be given in either order and still produce
// bit-identical results.
func (t contingencyTable) canonical() contingencyTable {
	if t.C < t.A || (t.C == t.A && t.D < t.B) {
		return contingencyTable{t.C, t.D, t.A, t.B}
	}
	return t
}

// degenerate reports whether a margin is zero, i.e., the observed
// table is the only one possible.
func (t contingencyTable) degenerate() bool {
	return t.A+t.B == 0 || t.C+t.D == 0 || t.A+t.C == 0 || t.B+t.D == 0
}

// logPvalue returns the natural log of the two-sided Fisher exact
// test p-value: the probability, given the table's margins, of a
// table no more likely than the observed one.
func (t contingencyTable) logPvalue() float64 {
	if t.degenerate() {
		return 0
	}
	t = t.canonical()
	r1 := t.A + t.B
	r2 := t.C + t.D
	c1 := t.A + t.C
	lo := c1 - r2
	if lo < 0 {
		lo = 0
	}
	hi := r1
	if c1 < hi {
		hi = c1
	}

	// Log hypergeometric weights, up to a constant shared by all
	// tables with these margins.
	w := make([]float64, hi-lo+1)
	obs, max := 0.0, math.Inf(-1)
	for x := lo; x <= hi; x++ {
		w[x-lo] = combin.LogGeneralizedBinomial(float64(r1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(r2), float64(c1-x))
		if x == t.A {
			obs = w[x-lo]
		}
		if w[x-lo] > max {
			max = w[x-lo]
		}
	}
	cutoff := obs + fisherRelErr

	// The extreme tail is summed relative to its own largest term
	// so that very small p-values do not underflow.
	maxExtreme := math.Inf(-1)
	excluded := false
	for _, wx := range w {
		if wx > cutoff {
			excluded = true
		} else if wx > maxExtreme {
			maxExtreme = wx
		}
	}
	if !excluded {
		return 0
	}
	var total, extreme float64
	for _, wx := range w {
		total += math.Exp(wx - max)
		if wx <= cutoff {
			extreme += math.Exp(wx - maxExtreme)
		}
	}
	logp := (maxExtreme + math.Log(extreme)) - (max + math.Log(total))
	if logp > 0 {
		logp = 0
	}
	return logp
}

// siteScore converts a natural-log p-value to -log10(p).
func siteScore(logp float64) float64 {
	// 0 - x rather than -x, so p == 1 yields +0, not -0.
	return 0 - logp/math.Ln10
}
