// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ntsm

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
)

// Comparison holds the loaded samples and the scored pairs of one
// run.
type Comparison struct {
	Config  Config
	Samples []*Sample

	// One entry per unordered pair of samples, sorted by
	// (error last, score, A, B).
	Results []PairResult
}

// CompareCounts loads every count file in paths, scores every
// unordered pair of samples, and returns the sorted results.
//
// A file that cannot be loaded, or a projection model that cannot be
// loaded, aborts the run before any pair is scored. Pairs that cannot
// be scored are returned with Err set.
func CompareCounts(cfg Config, paths []string) (*Comparison, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if len(paths) < 2 {
		return nil, fmt.Errorf("%w: %d input file(s) given", ErrTooFewSamples, len(paths))
	}
	cmp := &Comparison{Config: cfg}

	log.WithField("files", len(paths)).Info("loading count files")
	samples, err := loadSamples(paths, cfg.coverageFilter(), cfg.threads())
	if err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: loaded %d", ErrTooFewSamples, len(samples))
	}
	cmp.Samples = samples
	cmp.logSamples()

	var scorer pairScorer = exactScorer{skew: cfg.Skew}
	if cfg.projected() {
		log.Info("projecting samples")
		model, err := loadProjectionModel(cfg.PCAFile, cfg.NormFile)
		if err != nil {
			return nil, err
		}
		projectSamples(model, samples, cfg.threads())
		scorer = projectedScorer{}
	}

	cmp.Results = scoreAllPairs(scorer, samples, cfg)
	sortResults(cmp.Results)
	return cmp, nil
}

// Reported returns the results that should be output: all of them if
// Config.All is set, otherwise the pairs that passed plus the pairs
// that could not be scored.
func (cmp *Comparison) Reported() []PairResult {
	if cmp.Config.All {
		return cmp.Results
	}
	var out []PairResult
	for _, r := range cmp.Results {
		if r.Same || r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

func (cmp *Comparison) logSamples() {
	seen := map[string]string{}
	for _, s := range cmp.Samples {
		if prev, ok := seen[s.ID]; ok {
			log.Warnf("sample ID %q is used by both %s and %s", s.ID, prev, s.Path)
		}
		seen[s.ID] = s.Path
		mean, _ := s.CoverageStats()
		log.WithFields(log.Fields{
			"sample":           s.ID,
			"sites":            len(s.Sites),
			"meanCoverage":     mean,
			"expectedCoverage": s.ExpectedCoverage(cmp.Config.GenomeSize),
			"errorRate":        s.ErrorRate(),
		}).Info("loaded sample")
		if len(s.Sites) == 0 {
			log.Warnf("%s: no sites within coverage bounds", s.Path)
		}
	}
}

// loadSamples loads all paths concurrently, returning samples in the
// same order as paths, or the first error encountered.
func loadSamples(paths []string, filter coverageFilter, threads int) ([]*Sample, error) {
	samples := make([]*Sample, len(paths))
	throttle := throttle{Max: threads}
	for i, path := range paths {
		i, path := i, path
		err := throttle.Go(func() error {
			s, err := loadSample(path, filter)
			if err != nil {
				return err
			}
			samples[i] = s
			return nil
		})
		if err != nil {
			break
		}
	}
	if err := throttle.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// projectSamples computes each sample's projected vector. A sample
// that cannot be projected keeps the error, to be reported on every
// pair that includes it.
func projectSamples(model *projectionModel, samples []*Sample, threads int) {
	throttle := throttle{Max: threads}
	for _, s := range samples {
		s := s
		throttle.Go(func() error {
			s.Projected, s.projectErr = model.Project(s)
			if s.projectErr != nil {
				log.Warn(s.projectErr)
			}
			return nil
		})
	}
	throttle.Wait()
}

// scoreAllPairs scores every pair (i, j), i < j. Each pair is written
// to its own pre-allocated slot, so the result does not depend on the
// number of threads or the order in which pairs finish.
func scoreAllPairs(scorer pairScorer, samples []*Sample, cfg Config) []PairResult {
	n := len(samples)
	results := make([]PairResult, n*(n-1)/2)
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			results[k].A, results[k].B = i, j
			k++
		}
	}
	threads := cfg.threads()
	log.WithFields(log.Fields{
		"pairs":   len(results),
		"threads": threads,
		"bytes":   len(results) * int(unsafe.Sizeof(PairResult{})),
	}).Info("scoring all pairs")

	var bar *pb.ProgressBar
	if cfg.Progress {
		bar = pb.New(len(results))
		if cfg.ProgressOutput != nil {
			bar.SetWriter(cfg.ProgressOutput)
		}
		bar.Start()
		defer bar.Finish()
	}
	chunk := len(results)/(threads*8) + 1
	throttle := throttle{Max: threads}
	for start := 0; start < len(results); start += chunk {
		end := start + chunk
		if end > len(results) {
			end = len(results)
		}
		todo := results[start:end]
		throttle.Go(func() error {
			for idx := range todo {
				r := &todo[idx]
				scorePair(scorer, samples[r.A], samples[r.B], cfg.ScoreThresh, r)
				if r.Err != nil {
					log.Debugf("%s vs %s: %s", r.SampleA, r.SampleB, r.Err)
				}
			}
			if bar != nil {
				bar.Add(len(todo))
			}
			return nil
		})
	}
	throttle.Wait()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Warnf("%d of %d pairs could not be scored", failed, len(results))
	}
	return results
}

// sortResults orders results by score (most similar first), with
// errored pairs last and ties broken by sample order.
func sortResults(results []PairResult) {
	sort.Slice(results, func(i, j int) bool {
		ri, rj := &results[i], &results[j]
		if (ri.Err == nil) != (rj.Err == nil) {
			return ri.Err == nil
		}
		if ri.Err == nil && ri.Score != rj.Score {
			return ri.Score < rj.Score
		}
		if ri.A != rj.A {
			return ri.A < rj.A
		}
		return ri.B < rj.B
	})
}
