// Package sorter matches each unsorted image against the reference catalog
// and copies it into the winning reference's folder.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imagesorter/catalog"
	"imagesorter/imageprocessor"
	"imagesorter/logging"
	"imagesorter/types"

	log "github.com/sirupsen/logrus"
)

// ErrQueryDecode is returned when an unsorted image cannot be read.
var ErrQueryDecode = errors.New("cannot decode unsorted image")

// Sorter runs one sequential pass over the unsorted directory.
type Sorter struct {
	catalog    *catalog.Catalog
	extractor  catalog.Extractor
	options    Options
	recorder   Recorder
	bruteForce Strategy
	flann      Strategy
}

// NewSorter creates a sorter using the brute-force and FLANN strategies.
// The recorder may be nil.
func NewSorter(cat *catalog.Catalog, extractor catalog.Extractor, options Options, recorder Recorder) *Sorter {
	return &Sorter{
		catalog:    cat,
		extractor:  extractor,
		options:    options,
		recorder:   recorder,
		bruteForce: BruteForceStrategy(),
		flann:      FlannStrategy(),
	}
}

// SortAll is a shorthand for NewSorter(...).Run(ctx).
func SortAll(ctx context.Context, cat *catalog.Catalog, extractor catalog.Extractor, options Options, recorder Recorder) (*Summary, error) {
	return NewSorter(cat, extractor, options, recorder).Run(ctx)
}

// Run sorts every eligible file in directory order. It stops at the first
// failure unless ContinueOnError is set, and between files when ctx is done.
// Files copied before a failure stay in place.
func (s *Sorter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{PerLabel: make(map[string]int)}

	entries, err := os.ReadDir(s.options.ToSortDir)
	if err != nil {
		return summary, fmt.Errorf("read unsorted directory %s: %w", s.options.ToSortDir, err)
	}
	summary.Listed = len(entries)

	tracker := NewProgressTracker(len(entries), s.options.Progress)
	defer tracker.Stop()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		name := entry.Name()
		if entry.IsDir() || !imageprocessor.IsSortableFile(name) {
			tracker.Step()
			continue
		}
		summary.Eligible++

		path := filepath.Join(s.options.ToSortDir, name)
		decision, err := s.sortFile(path)
		logging.LogImageProcessed(path, decision.Destination, err)
		if err != nil {
			if s.options.ContinueOnError && errors.Is(err, ErrQueryDecode) {
				summary.Failed++
				tracker.Step()
				continue
			}
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		summary.Sorted++
		summary.PerLabel[decision.Label]++
		if decision.Label == types.UnknownLabel {
			summary.Unknown++
		}
		s.record(decision)
		tracker.Step()
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

// Decide scores a query signature against every reference with both
// strategies and reconciles the two selections.
func (s *Sorter) Decide(query imageprocessor.Signature) Decision {
	entries := s.catalog.Entries()
	ratio := s.options.DistanceRatio

	bf := SelectBest(entries, func(e *catalog.Entry) int {
		return s.bruteForce.Score(e.Signature, query, ratio)
	}, s.options.MinMatches, s.options.TieBreak)

	flann := SelectBest(entries, func(e *catalog.Entry) int {
		return s.flann.Score(e.Signature, query, ratio)
	}, s.options.MinMatches, s.options.TieBreak)

	return Reconcile(bf, flann, s.catalog.UnknownDir())
}

// sortFile extracts, decides and copies one file.
func (s *Sorter) sortFile(path string) (types.SortDecision, error) {
	filename := filepath.Base(path)
	result := types.SortDecision{Path: path, Filename: filename, HashDistance: -1}

	features, err := s.extractor.ExtractFile(path)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrQueryDecode, path, err)
	}
	defer features.Close()

	decision := s.Decide(features.Signature)

	result.Destination = decision.Destination
	result.Label = decision.Label
	result.Strategy = decision.Strategy
	result.BFLabel = decision.BruteForce.Label()
	result.BFScore = decision.BruteForce.Score
	result.FlannLabel = decision.Flann.Label()
	result.FlannScore = decision.Flann.Score
	result.PHash = imageprocessor.HashString(features.Hash)
	if winner := s.winner(decision); winner != nil {
		result.HashDistance = imageprocessor.HashDistance(winner.Hash, features.Hash)
	}

	target := filepath.Join(decision.Destination, filename)
	if s.options.DryRun {
		result.Size, result.SHA256, err = HashFile(path)
		if err != nil {
			return result, fmt.Errorf("hash %s: %w", path, err)
		}
	} else {
		result.Size, result.SHA256, err = CopyFile(path, target)
		if err != nil {
			return result, fmt.Errorf("copy %s to %s: %w", path, target, err)
		}
		result.Copied = true
	}

	logging.Logger().WithFields(log.Fields{
		"file":        filename,
		"label":       decision.Label,
		"strategy":    decision.Strategy,
		"bf_score":    decision.BruteForce.Score,
		"flann_score": decision.Flann.Score,
	}).Debug("Sort decision")

	return result, nil
}

func (s *Sorter) winner(d Decision) *catalog.Entry {
	switch d.Strategy {
	case types.StrategyBruteForce:
		return d.BruteForce.Entry
	case types.StrategyFlann:
		return d.Flann.Entry
	default:
		return nil
	}
}

// record hands the decision to the recorder. Journal failures never stop a run.
func (s *Sorter) record(d types.SortDecision) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordDecision(d); err != nil {
		logging.LogWarning("Cannot record decision for %s: %v", d.Path, err)
	}
}
