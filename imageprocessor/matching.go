package imageprocessor

import (
	"gocv.io/x/gocv"
)

// DefaultDistanceRatio is the ratio-test threshold: a correspondence counts
// only when its nearest neighbour is closer than ratio times the second one.
const DefaultDistanceRatio = 0.70

// knn is the number of neighbours requested per reference descriptor.
const knn = 2

// ScoreFunc counts the correspondences between a reference and a query
// signature that pass the ratio test.
type ScoreFunc func(ref, query Signature, ratio float64) int

// BruteForceScore matches every reference descriptor against every query
// descriptor with an exhaustive L2 search.
func BruteForceScore(ref, query Signature, ratio float64) int {
	if !scorable(ref, query) {
		return 0
	}

	matcher := gocv.NewBFMatcher()
	defer matcher.Close()

	return CountRatioMatches(matcher.KnnMatch(ref.Descriptors, query.Descriptors, knn), ratio)
}

// FlannScore matches reference descriptors against the query using
// OpenCV's FLANN approximate nearest neighbour index.
func FlannScore(ref, query Signature, ratio float64) int {
	if !scorable(ref, query) {
		return 0
	}

	matcher := gocv.NewFlannBasedMatcher()
	defer matcher.Close()

	return CountRatioMatches(matcher.KnnMatch(ref.Descriptors, query.Descriptors, knn), ratio)
}

// scorable reports whether a k=2 search between the two signatures is possible.
func scorable(ref, query Signature) bool {
	return !ref.Empty() && query.Len() >= knn
}

// CountRatioMatches counts the neighbour pairs whose best distance is below
// ratio times the second best. When the first entry has fewer than two
// neighbours the whole result scores zero.
func CountRatioMatches(matches [][]gocv.DMatch, ratio float64) int {
	if len(matches) == 0 || len(matches[0]) < knn {
		return 0
	}

	count := 0
	for _, pair := range matches {
		if len(pair) < knn {
			continue
		}
		if pair[0].Distance < ratio*pair[1].Distance {
			count++
		}
	}
	return count
}
