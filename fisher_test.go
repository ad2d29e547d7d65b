// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"math"

	"gopkg.in/check.v1"
)

type fisherSuite struct{}

var _ = check.Suite(&fisherSuite{})

func (s *fisherSuite) TestKnownValues(c *check.C) {
	for _, trial := range []struct {
		t contingencyTable
		p float64
	}{
		{contingencyTable{3, 1, 1, 3}, 0.4857142857},
		{contingencyTable{1, 9, 11, 3}, 0.002759456185},
		{contingencyTable{12, 18, 20, 10}, 0.06920580631},
		{contingencyTable{25, 5, 24, 6}, 1},
		{contingencyTable{7, 0, 3, 11}, 0.001031991744},
		{contingencyTable{3, 11, 7, 0}, 0.001031991744},
		{contingencyTable{30, 0, 0, 30}, 1.691123389e-17},
		{contingencyTable{0, 40, 38, 2}, 1.601753055e-20},
	} {
		c.Logf("%+v", trial.t)
		p := math.Exp(trial.t.logPvalue())
		c.Check(math.Abs(p-trial.p)/trial.p < 1e-6, check.Equals, true, check.Commentf("got %g, expected %g", p, trial.p))
	}
}

func (s *fisherSuite) TestNoUnderflow(c *check.C) {
	logp := contingencyTable{500, 0, 0, 500}.logPvalue()
	c.Check(math.IsInf(logp, 0), check.Equals, false)
	c.Check(math.Abs(siteScore(logp)-299.1308) < 1e-3, check.Equals, true, check.Commentf("score %g", siteScore(logp)))
}

func (s *fisherSuite) TestSymmetric(c *check.C) {
	for _, t := range []contingencyTable{
		{3, 1, 1, 3},
		{1, 9, 11, 3},
		{12, 18, 20, 10},
		{0, 40, 38, 2},
		{5, 5, 5, 6},
	} {
		swapped := contingencyTable{t.C, t.D, t.A, t.B}
		c.Check(t.logPvalue(), check.Equals, swapped.logPvalue())
	}
}

func (s *fisherSuite) TestIdenticalRows(c *check.C) {
	for _, t := range []contingencyTable{
		{10, 10, 10, 10},
		{5, 20, 5, 20},
		{1, 0, 1, 0},
	} {
		logp := t.logPvalue()
		c.Check(logp, check.Equals, 0.0)
		score := siteScore(logp)
		c.Check(score, check.Equals, 0.0)
		c.Check(math.Signbit(score), check.Equals, false)
	}
}

func (s *fisherSuite) TestDegenerate(c *check.C) {
	for _, t := range []contingencyTable{
		{0, 0, 3, 4},
		{3, 4, 0, 0},
		{0, 5, 0, 7},
		{5, 0, 7, 0},
	} {
		c.Check(t.degenerate(), check.Equals, true)
		c.Check(t.logPvalue(), check.Equals, 0.0)
	}
	c.Check(contingencyTable{1, 0, 0, 1}.degenerate(), check.Equals, false)
}

func (s *fisherSuite) TestEqualProbabilityTails(c *check.C) {
	// Mirror-image tables have equal probability, so both tails are
	// always counted together.
	for _, pair := range [][2]contingencyTable{
		{{3, 1, 1, 3}, {1, 3, 3, 1}},
		{{10, 30, 30, 10}, {30, 10, 10, 30}},
		{{0, 20, 20, 0}, {20, 0, 0, 20}},
	} {
		p0, p1 := math.Exp(pair[0].logPvalue()), math.Exp(pair[1].logPvalue())
		c.Check(math.Abs(p0-p1) <= 1e-12*p0, check.Equals, true, check.Commentf("%+v %g %g", pair, p0, p1))
	}
	c.Check(math.Abs(math.Exp(contingencyTable{1, 3, 3, 1}.logPvalue())-0.4857142857) < 1e-9, check.Equals, true)
}
