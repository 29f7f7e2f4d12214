package sorter

import (
	"imagesorter/catalog"
	"imagesorter/imageprocessor"
	"imagesorter/types"
)

// BruteForceStrategy is Strategy A: exhaustive k-NN matching.
func BruteForceStrategy() Strategy {
	return Strategy{Name: types.StrategyBruteForce, Score: imageprocessor.BruteForceScore}
}

// FlannStrategy is Strategy B: FLANN approximate k-NN matching.
func FlannStrategy() Strategy {
	return Strategy{Name: types.StrategyFlann, Score: imageprocessor.FlannScore}
}

// SelectBest scores every entry and keeps the best one. The floor is the
// starting best score, so an entry must reach it (TieLastWins) or exceed it
// (TieFirstWins) to be selected at all.
func SelectBest(entries []catalog.Entry, score func(*catalog.Entry) int, floor int, tie TieBreak) Selection {
	best := Selection{Score: floor}
	for i := range entries {
		s := score(&entries[i])
		if s > best.Score || (tie == TieLastWins && s == best.Score) {
			best = Selection{Entry: &entries[i], Score: s}
		}
	}
	return best
}

// Reconcile picks the brute-force result whenever it selected a reference,
// and the FLANN result otherwise.
func Reconcile(bruteForce, flann Selection, unknownDir string) Decision {
	d := Decision{BruteForce: bruteForce, Flann: flann}

	switch {
	case !bruteForce.IsBaseline():
		d.Destination = bruteForce.Entry.Destination
		d.Label = bruteForce.Entry.Name
		d.Strategy = types.StrategyBruteForce
	case !flann.IsBaseline():
		d.Destination = flann.Entry.Destination
		d.Label = flann.Entry.Name
		d.Strategy = types.StrategyFlann
	default:
		d.Destination = unknownDir
		d.Label = types.UnknownLabel
		d.Strategy = types.StrategyNone
	}
	return d
}
