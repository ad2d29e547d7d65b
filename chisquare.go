// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// combinedPvalue combines k independent p-values with Fisher's
// method, given the sum of their natural logs: under the null
// hypothesis -2*Σln(p) follows a Χ² distribution with 2k degrees of
// freedom.
//
// Per-site exact test p-values are discrete and conservative, so the
// result is conservative too. It is reported as a diagnostic only.
func combinedPvalue(sumLogP float64, k int) float64 {
	if k <= 0 {
		return math.NaN()
	}
	if sumLogP >= 0 {
		return 1
	}
	chisquared := distuv.ChiSquared{K: float64(2 * k)}
	return chisquared.Survival(-2 * sumLogP)
}
