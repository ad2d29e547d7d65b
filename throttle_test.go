// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"errors"
	"sync/atomic"

	"gopkg.in/check.v1"
)

type throttleSuite struct{}

var _ = check.Suite(&throttleSuite{})

func (s *throttleSuite) TestMax(c *check.C) {
	var running, peak int64
	t := throttle{Max: 3}
	for i := 0; i < 50; i++ {
		c.Check(t.Go(func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			atomic.AddInt64(&running, -1)
			return nil
		}), check.IsNil)
	}
	c.Check(t.Wait(), check.IsNil)
	c.Check(peak <= 3, check.Equals, true)
}

func (s *throttleSuite) TestFirstError(c *check.C) {
	errFirst := errors.New("first")
	t := throttle{Max: 1}
	c.Check(t.Go(func() error { return errFirst }), check.IsNil)
	c.Check(t.Wait(), check.Equals, errFirst)
	called := false
	c.Check(t.Go(func() error { called = true; return errors.New("second") }), check.Equals, errFirst)
	c.Check(t.Wait(), check.Equals, errFirst)
	c.Check(called, check.Equals, false)
}

func (s *throttleSuite) TestZeroMax(c *check.C) {
	t := throttle{}
	var n int64
	for i := 0; i < 5; i++ {
		c.Check(t.Go(func() error { atomic.AddInt64(&n, 1); return nil }), check.IsNil)
	}
	c.Check(t.Wait(), check.IsNil)
	c.Check(n, check.Equals, int64(5))
}
