// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// projectionModel is a precomputed PCA transform: a centering value
// for each site in a fixed panel, and a features × components
// rotation matrix. It is read-only once loaded.
type projectionModel struct {
	sites    []string
	index    map[string]int
	center   []float64
	rotation *mat.Dense
}

// loadProjectionModel reads the rotation matrix from pcaPath and the
// site panel with its centering values from normPath.
func loadProjectionModel(pcaPath, normPath string) (*projectionModel, error) {
	sites, center, err := readCenters(normPath)
	if err != nil {
		return nil, err
	}
	rotation, err := readRotation(pcaPath)
	if err != nil {
		return nil, err
	}
	rows, cols := rotation.Dims()
	if rows != len(center) {
		return nil, fmt.Errorf("%w: rotation %s has %d rows, centering vector %s has %d values", ErrDimensionMismatch, pcaPath, rows, normPath, len(center))
	}
	m := &projectionModel{
		sites:    sites,
		index:    make(map[string]int, len(sites)),
		center:   center,
		rotation: rotation,
	}
	for i, site := range sites {
		m.index[site] = i
	}
	log.WithFields(log.Fields{
		"features":   rows,
		"components": cols,
	}).Info("loaded projection model")
	return m, nil
}

// Components returns the dimension of projected vectors.
func (m *projectionModel) Components() int {
	_, cols := m.rotation.Dims()
	return cols
}

// features returns the feature vector of s in panel order: the
// allele-B fraction at each panel site, or the site's center value if
// s has no record there. It also returns the number of panel sites
// present in s.
func (m *projectionModel) features(s *Sample) ([]float64, int) {
	x := make([]float64, len(m.center))
	copy(x, m.center)
	found := 0
	for _, r := range s.Sites {
		i, ok := m.index[r.Site]
		if !ok {
			continue
		}
		x[i] = float64(r.B) / float64(r.Coverage())
		found++
	}
	return x, found
}

// Project computes rotationᵀ·(features(s) − center).
func (m *projectionModel) Project(s *Sample) ([]float64, error) {
	x, found := m.features(s)
	if found == 0 {
		return nil, fmt.Errorf("%w: sample %s has no sites in the projection panel", ErrDimensionMismatch, s.ID)
	}
	floats.Sub(x, m.center)
	var out mat.VecDense
	out.MulVec(m.rotation.T(), mat.NewVecDense(len(x), x))
	ret := make([]float64, out.Len())
	for i := range ret {
		ret[i] = out.AtVec(i)
	}
	return ret, nil
}

// readCenters reads "site center" lines.
func readCenters(path string) ([]string, []float64, error) {
	f, err := zopen(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var sites []string
	var center []float64
	seen := map[string]bool{}
	err = scanFields(f, path, func(lineNum int, fields []string) error {
		if len(fields) != 2 {
			return &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("expected 2 fields (site, center), found %d", len(fields))}
		}
		if seen[fields[0]] {
			return &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("duplicate site %q", fields[0])}
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("cannot parse float %q", fields[1])}
		}
		seen[fields[0]] = true
		sites = append(sites, fields[0])
		center = append(center, v)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(center) == 0 {
		return nil, nil, &FormatError{Path: path, Msg: "no centering values"}
	}
	return sites, center, nil
}

// readRotation reads a features × components matrix from a .npy file
// or from text with one whitespace-separated row per line.
func readRotation(path string) (*mat.Dense, error) {
	f, err := zopen(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".npy") {
		return readRotationNumpy(f, path)
	}
	var data []float64
	rows, cols := 0, 0
	err = scanFields(f, path, func(lineNum int, fields []string) error {
		if rows == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("%d values, expected %d", len(fields), cols)}
		}
		for _, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("cannot parse float %q", s)}
			}
			data = append(data, v)
		}
		rows++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, &FormatError{Path: path, Msg: "empty rotation matrix"}
	}
	return mat.NewDense(rows, cols, data), nil
}

func readRotationNumpy(rdr io.Reader, path string) (*mat.Dense, error) {
	npy, err := gonpy.NewReader(rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(npy.Shape) != 2 || npy.Shape[0] == 0 || npy.Shape[1] == 0 {
		return nil, &FormatError{Path: path, Msg: fmt.Sprintf("rotation must be a non-empty 2-D array, shape is %v", npy.Shape)}
	}
	data, err := npy.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, cols := npy.Shape[0], npy.Shape[1]
	if npy.ColumnMajor {
		rowmajor := make([]float64, len(data))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				rowmajor[i*cols+j] = data[j*rows+i]
			}
		}
		data = rowmajor
	}
	return mat.NewDense(rows, cols, data), nil
}

// scanFields calls fn with the whitespace-separated fields of each
// non-blank, non-comment line.
func scanFields(rdr io.Reader, path string, fn func(lineNum int, fields []string) error) error {
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := fn(lineNum, fields); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
