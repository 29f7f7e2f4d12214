package imageprocessor

import (
	"errors"
	"fmt"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

var errEmptyHashInput = errors.New("cannot compute hash for empty image")

// ComputePerceptualHash computes a 64-bit DCT perceptual hash of img
func ComputePerceptualHash(img gocv.Mat) (*goimagehash.ImageHash, error) {
	if img.Empty() {
		return nil, errEmptyHashInput
	}

	goImg, err := img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat to image: %w", err)
	}

	return goimagehash.PerceptionHash(goImg)
}

// HashDistance returns the Hamming distance between two hashes, or -1 when
// either is missing or they are of different kinds.
func HashDistance(a, b *goimagehash.ImageHash) int {
	if a == nil || b == nil {
		return -1
	}
	dist, err := a.Distance(b)
	if err != nil {
		return -1
	}
	return dist
}

// HashString renders a hash for storage, empty when missing
func HashString(h *goimagehash.ImageHash) string {
	if h == nil {
		return ""
	}
	return h.ToString()
}
