// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"flag"
	"io"

	log "github.com/sirupsen/logrus"
	"gopkg.in/check.v1"
)

type configSuite struct{}

var _ = check.Suite(&configSuite{})

func (s *configSuite) parse(c *check.C, args ...string) (Config, []string) {
	cfg := DefaultConfig()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	cfg.Flags(flags)
	c.Assert(flags.Parse(args), check.IsNil)
	return cfg, flags.Args()
}

func (s *configSuite) TestVerbosity(c *check.C) {
	cfg, args := s.parse(c, "-verbose", "2", "a.txt", "b.txt")
	c.Check(cfg.Verbose, check.Equals, 2)
	c.Check(args, check.DeepEquals, []string{"a.txt", "b.txt"})
	c.Check(cfg.LogLevel(), check.Equals, log.DebugLevel)

	cfg, args = s.parse(c, "-v", "a.txt", "b.txt")
	c.Check(cfg.Verbose, check.Equals, 1)
	c.Check(args, check.HasLen, 2)
	c.Check(cfg.LogLevel(), check.Equals, log.InfoLevel)

	cfg, _ = s.parse(c, "-v", "-v", "-v")
	c.Check(cfg.Verbose, check.Equals, 3)

	cfg, _ = s.parse(c)
	c.Check(cfg.LogLevel(), check.Equals, log.WarnLevel)
}

func (s *configSuite) TestThreads(c *check.C) {
	cfg, _ := s.parse(c, "-threads=0")
	c.Check(cfg.threads() > 0, check.Equals, true)
	cfg, _ = s.parse(c, "-threads", "3")
	c.Check(cfg.threads(), check.Equals, 3)
}
