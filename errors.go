// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is wrapped by every *FormatError.
	ErrFormat = errors.New("malformed input")

	// ErrDimensionMismatch means a feature vector, centering vector
	// and rotation matrix do not agree on the number of features.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyOverlap is recorded on a pair whose samples have no
	// sites in common.
	ErrEmptyOverlap = errors.New("no shared sites")

	// ErrTooFewSamples means fewer than two samples were loaded, so
	// there is nothing to compare.
	ErrTooFewSamples = errors.New("need at least 2 samples to compare")
)

// FormatError reports an input line that could not be parsed.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("%s line %d: %s", e.Path, e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrFormat }
