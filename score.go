// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// PairResult is the outcome of comparing two samples. Score is a
// divergence: 0 is the most similar possible, and a pair is reported
// as the same source when Score ≤ the configured threshold. If Err is
// not nil the pair could not be scored, Score is NaN and Same is
// false.
type PairResult struct {
	A, B       int // indexes into the sample list, A < B
	SampleA    string
	SampleB    string
	Score      float64
	Same       bool
	Sites      int     // shared sites (exact estimator)
	Degenerate int     // shared sites whose table has a zero margin
	CovA, CovB float64 // mean coverage over shared sites
	Pvalue     float64 // Fisher's method over all shared sites
	Identical  bool    // both samples have exactly the same records
	Err        error
}

// pairScorer computes the score of one pair, filling in the
// estimator-specific fields of r.
type pairScorer interface {
	score(a, b *Sample, r *PairResult)
}

// exactScorer combines per-site Fisher exact tests over the sites the
// two samples share: the score is the mean -log10(p), divided by
// (covA*covB)^skew.
type exactScorer struct {
	skew float64
}

func (sc exactScorer) score(a, b *Sample, r *PairResult) {
	var sumLogP float64
	var covA, covB int64
	for i, j := 0, 0; i < len(a.Sites) && j < len(b.Sites); {
		ra, rb := a.Sites[i], b.Sites[j]
		if ra.Site < rb.Site {
			i++
			continue
		} else if ra.Site > rb.Site {
			j++
			continue
		}
		t := contingencyTable{ra.A, ra.B, rb.A, rb.B}
		if t.degenerate() {
			r.Degenerate++
		}
		sumLogP += t.logPvalue()
		covA += int64(ra.Coverage())
		covB += int64(rb.Coverage())
		r.Sites++
		i++
		j++
	}
	if r.Sites == 0 {
		r.Score = math.NaN()
		r.Pvalue = math.NaN()
		r.CovA, r.CovB = math.NaN(), math.NaN()
		r.Err = ErrEmptyOverlap
		return
	}
	n := float64(r.Sites)
	r.CovA = float64(covA) / n
	r.CovB = float64(covB) / n
	r.Score = siteScore(sumLogP) / n / sc.divisor(r.CovA, r.CovB)
	r.Pvalue = combinedPvalue(sumLogP, r.Sites)
}

// divisor returns the coverage skew correction (covA*covB)^skew,
// exactly 1 when skew is 0.
func (sc exactScorer) divisor(covA, covB float64) float64 {
	if sc.skew == 0 {
		return 1
	}
	return math.Pow(covA*covB, sc.skew)
}

// projectedScorer scores a pair by the Euclidean distance between
// the samples' projected vectors. It does not look at per-site
// counts.
type projectedScorer struct{}

func (projectedScorer) score(a, b *Sample, r *PairResult) {
	r.Pvalue = math.NaN()
	r.CovA, r.CovB = math.NaN(), math.NaN()
	switch {
	case a.projectErr != nil:
		r.Err = a.projectErr
	case b.projectErr != nil:
		r.Err = b.projectErr
	case len(a.Projected) != len(b.Projected):
		r.Err = fmt.Errorf("%w: projected vectors for %s and %s have lengths %d, %d", ErrDimensionMismatch, a.ID, b.ID, len(a.Projected), len(b.Projected))
	}
	if r.Err != nil {
		r.Score = math.NaN()
		return
	}
	r.Score = floats.Distance(a.Projected, b.Projected, 2)
}

// scorePair fills in r (whose A and B are already set) using sc.
func scorePair(sc pairScorer, a, b *Sample, thresh float64, r *PairResult) {
	r.SampleA, r.SampleB = a.ID, b.ID
	r.Identical = len(a.Sites) > 0 && a.Digest == b.Digest
	sc.score(a, b, r)
	r.Same = r.Err == nil && r.Score <= thresh
}
