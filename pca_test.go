// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type pcaSuite struct{}

var _ = check.Suite(&pcaSuite{})

const testNorm = "# site center\ns1\t0.5\ns2\t0.5\ns3\t0.5\n"

func writeRotationNumpy(c *check.C, path string, rows, cols int, data []float64) string {
	buf := &bytes.Buffer{}
	npw, err := gonpy.NewWriter(nopCloser{buf})
	c.Assert(err, check.IsNil)
	npw.Shape = []int{rows, cols}
	c.Assert(npw.WriteFloat64(data), check.IsNil)
	c.Assert(os.WriteFile(path, buf.Bytes(), 0666), check.IsNil)
	return path
}

func (s *pcaSuite) checkModel(c *check.C, m *projectionModel) {
	c.Check(m.Components(), check.Equals, 2)
	proj, err := m.Project(&Sample{ID: "x", Sites: []SiteRecord{
		{"s1", 0, 10},
		{"s2", 10, 0},
		{"other", 5, 5},
	}})
	c.Assert(err, check.IsNil)
	c.Check(proj, check.DeepEquals, []float64{0.5, -0.5})

	// Sample at the center projects to the origin.
	proj, err = m.Project(&Sample{ID: "y", Sites: []SiteRecord{{"s2", 3, 3}}})
	c.Assert(err, check.IsNil)
	c.Check(proj, check.DeepEquals, []float64{0, 0})
}

func (s *pcaSuite) TestTextModel(c *check.C) {
	tmpdir := c.MkDir()
	norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), testNorm)
	pca := writeFile(c, filepath.Join(tmpdir, "pca.txt"), "1 0\n0 1\n1 1\n")
	m, err := loadProjectionModel(pca, norm)
	c.Assert(err, check.IsNil)
	s.checkModel(c, m)
}

func (s *pcaSuite) TestNumpyModel(c *check.C) {
	tmpdir := c.MkDir()
	norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), testNorm)
	pca := writeRotationNumpy(c, filepath.Join(tmpdir, "pca.npy"), 3, 2, []float64{1, 0, 0, 1, 1, 1})
	m, err := loadProjectionModel(pca, norm)
	c.Assert(err, check.IsNil)
	s.checkModel(c, m)
}

func (s *pcaSuite) TestDimensionMismatch(c *check.C) {
	tmpdir := c.MkDir()
	norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), testNorm)
	pca := writeFile(c, filepath.Join(tmpdir, "pca.txt"), "1 0\n0 1\n")
	_, err := loadProjectionModel(pca, norm)
	c.Check(errors.Is(err, ErrDimensionMismatch), check.Equals, true)

	pca = writeRotationNumpy(c, filepath.Join(tmpdir, "pca.npy"), 4, 1, []float64{1, 2, 3, 4})
	_, err = loadProjectionModel(pca, norm)
	c.Check(errors.Is(err, ErrDimensionMismatch), check.Equals, true)
}

func (s *pcaSuite) TestMalformed(c *check.C) {
	tmpdir := c.MkDir()
	norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), testNorm)
	for _, content := range []string{
		"1 0\n0\n1 1\n",
		"1 0\n0 x\n1 1\n",
		"",
	} {
		pca := writeFile(c, filepath.Join(tmpdir, "pca.txt"), content)
		_, err := loadProjectionModel(pca, norm)
		c.Check(errors.Is(err, ErrFormat), check.Equals, true, check.Commentf("%q", content))
	}

	pca := writeFile(c, filepath.Join(tmpdir, "pca.txt"), "1 0\n0 1\n1 1\n")
	for _, content := range []string{
		"s1 0.5\ns1 0.5\ns3 0.5\n",
		"s1\n",
		"s1 half\n",
	} {
		norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), content)
		_, err := loadProjectionModel(pca, norm)
		c.Check(errors.Is(err, ErrFormat), check.Equals, true, check.Commentf("%q", content))
	}
}

func (s *pcaSuite) TestNoPanelOverlap(c *check.C) {
	tmpdir := c.MkDir()
	norm := writeFile(c, filepath.Join(tmpdir, "norm.txt"), testNorm)
	pca := writeFile(c, filepath.Join(tmpdir, "pca.txt"), "1 0\n0 1\n1 1\n")
	m, err := loadProjectionModel(pca, norm)
	c.Assert(err, check.IsNil)
	_, err = m.Project(&Sample{ID: "z", Sites: []SiteRecord{{"q", 1, 1}}})
	c.Check(errors.Is(err, ErrDimensionMismatch), check.Equals, true)
}
