// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"gonum.org/v1/gonum/stat"
)

// Sites whose minor allele fraction is below this are treated as
// homozygous when estimating the sequencing error rate.
const homozygousMinorFraction = 0.2

// SiteRecord holds the allele counts observed at one site.
type SiteRecord struct {
	Site string
	A    int
	B    int
}

// Coverage returns the total number of observations at the site.
func (r SiteRecord) Coverage() int { return r.A + r.B }

// Sample is the loaded, filtered count profile of one input file.
// Sites are sorted by site identifier and never modified after
// loadSample returns.
type Sample struct {
	ID         string
	Path       string
	Sites      []SiteRecord
	TotalKmers int64 // from "#@TK" header, 0 if absent
	KmerSize   int   // from "#@KS" header, 0 if absent
	Digest     [blake2b.Size256]byte

	// Set during the projecting phase, if enabled.
	Projected  []float64
	projectErr error
}

// countFile is the parsed, unfiltered content of a count file.
type countFile struct {
	records    []SiteRecord
	totalKmers int64
	kmerSize   int
	header     []string // "#@" metadata lines, verbatim
}

// readCounts parses count records from rdr. path is only used in
// error messages.
func readCounts(rdr io.Reader, path string) (*countFile, error) {
	cf := &countFile{}
	seen := map[string]int{}
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "#") {
			if strings.HasPrefix(fields[0], "#@") {
				cf.header = append(cf.header, line)
				if err := cf.parseMetadata(fields); err != nil {
					return nil, &FormatError{Path: path, Line: lineNum, Msg: err.Error()}
				}
			}
			continue
		}
		if len(fields) < 3 {
			return nil, &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("%d fields < 3 in %q", len(fields), line)}
		}
		var rec SiteRecord
		rec.Site = fields[0]
		for i, dst := range []*int{&rec.A, &rec.B} {
			n, err := strconv.Atoi(fields[i+1])
			if err != nil || n < 0 {
				return nil, &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("invalid count %q for site %q", fields[i+1], rec.Site)}
			}
			*dst = n
		}
		if prev, ok := seen[rec.Site]; ok {
			return nil, &FormatError{Path: path, Line: lineNum, Msg: fmt.Sprintf("duplicate site %q (first seen on line %d)", rec.Site, prev)}
		}
		seen[rec.Site] = lineNum
		cf.records = append(cf.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

func (cf *countFile) parseMetadata(fields []string) error {
	if len(fields) < 2 {
		return nil
	}
	var err error
	switch fields[0] {
	case "#@TK":
		cf.totalKmers, err = strconv.ParseInt(fields[1], 10, 64)
	case "#@KS":
		cf.kmerSize, err = strconv.Atoi(fields[1])
	}
	if err != nil {
		return fmt.Errorf("invalid %s value %q", fields[0], fields[1])
	}
	return nil
}

// loadSample reads path and returns a Sample holding only the sites
// that pass filter.
func loadSample(path string, filter coverageFilter) (*Sample, error) {
	f, err := zopen(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cf, err := readCounts(f, path)
	if err != nil {
		return nil, err
	}
	if err = f.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sites := filter.Apply(cf.records)
	sort.Slice(sites, func(i, j int) bool { return sites[i].Site < sites[j].Site })
	s := &Sample{
		ID:         sampleID(path),
		Path:       path,
		Sites:      sites,
		TotalKmers: cf.totalKmers,
		KmerSize:   cf.kmerSize,
		Digest:     digestSites(sites),
	}
	log.WithFields(log.Fields{
		"sample":  s.ID,
		"records": len(cf.records),
		"kept":    len(sites),
	}).Debugf("loaded %s", path)
	return s, nil
}

// sampleID derives a sample identifier from a file name:
// "dir/S1.counts.txt.gz" => "S1.counts".
func sampleID(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func digestSites(sites []SiteRecord) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)
	w := bufio.NewWriter(h)
	for _, r := range sites {
		fmt.Fprintf(w, "%s\t%d\t%d\n", r.Site, r.A, r.B)
	}
	w.Flush()
	var sum [blake2b.Size256]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// CoverageStats returns the mean and standard deviation of the
// per-site coverage.
func (s *Sample) CoverageStats() (mean, std float64) {
	if len(s.Sites) == 0 {
		return 0, 0
	}
	cov := make([]float64, len(s.Sites))
	for i, r := range s.Sites {
		cov[i] = float64(r.Coverage())
	}
	if len(cov) == 1 {
		return cov[0], 0
	}
	return stat.MeanStdDev(cov, nil)
}

// ErrorRate estimates the sequencing error rate as the fraction of
// minor-allele observations at sites that look homozygous. It returns
// 0 if there are no such sites.
func (s *Sample) ErrorRate() float64 {
	var minor, total int
	for _, r := range s.Sites {
		cov := r.Coverage()
		m := r.A
		if r.B < m {
			m = r.B
		}
		if float64(m) < homozygousMinorFraction*float64(cov) {
			minor += m
			total += cov
		}
	}
	if total == 0 {
		return 0
	}
	return float64(minor) / float64(total)
}

// ExpectedCoverage estimates genome-wide k-mer coverage from the
// total k-mer count in the file header. It returns 0 if either value
// is unknown.
func (s *Sample) ExpectedCoverage(genomeSize int64) float64 {
	if s.TotalKmers <= 0 || genomeSize <= 0 {
		return 0
	}
	return float64(s.TotalKmers) / float64(genomeSize)
}
