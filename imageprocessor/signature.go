package imageprocessor

import (
	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"

	"imagesorter/logging"
)

// Signature is the set of keypoints found in an image with one descriptor
// row per keypoint. It is not modified after extraction.
type Signature struct {
	Keypoints   []gocv.KeyPoint
	Descriptors gocv.Mat

	count int
	owned bool
}

// NewSignature wraps an extracted keypoint set. The signature takes
// ownership of descriptors.
func NewSignature(keypoints []gocv.KeyPoint, descriptors gocv.Mat) Signature {
	count := 0
	if !descriptors.Empty() {
		count = descriptors.Rows()
	}
	return Signature{
		Keypoints:   keypoints,
		Descriptors: descriptors,
		count:       count,
		owned:       true,
	}
}

// Len returns the number of descriptor rows
func (s Signature) Len() int {
	return s.count
}

// Empty reports whether the signature has no descriptors to match
func (s Signature) Empty() bool {
	return s.count == 0
}

// Close releases the descriptor matrix
func (s *Signature) Close() {
	if s.owned {
		s.Descriptors.Close()
		s.owned = false
		s.count = 0
	}
}

// Features bundles everything extracted from one image file.
type Features struct {
	Signature Signature
	Hash      *goimagehash.ImageHash
	Width     int
	Height    int
}

// Close releases native resources held by the features
func (f *Features) Close() {
	f.Signature.Close()
}

// Extractor computes SIFT signatures. It holds a native detector and is not
// safe for concurrent use.
type Extractor struct {
	sift gocv.SIFT
	pre  *Preprocessor
}

// NewExtractor creates an extractor with the given crop factor
func NewExtractor(cropFactor float64) *Extractor {
	return &Extractor{
		sift: gocv.NewSIFT(),
		pre:  NewPreprocessor(cropFactor),
	}
}

// Close releases the SIFT detector
func (e *Extractor) Close() {
	e.sift.Close()
}

// Extract computes the signature of an already preprocessed grayscale image
func (e *Extractor) Extract(gray gocv.Mat) Signature {
	mask := gocv.NewMat()
	defer mask.Close()

	keypoints, descriptors := e.sift.DetectAndCompute(gray, mask)
	return NewSignature(keypoints, descriptors)
}

// ExtractFile preprocesses path and extracts its signature and perceptual hash.
// A hashing failure is logged and leaves Hash nil.
func (e *Extractor) ExtractFile(path string) (Features, error) {
	gray, err := e.pre.Preprocess(path)
	if err != nil {
		return Features{}, err
	}
	defer gray.Close()

	features := Features{
		Signature: e.Extract(gray),
		Width:     gray.Cols(),
		Height:    gray.Rows(),
	}

	hash, err := ComputePerceptualHash(gray)
	if err != nil {
		logging.LogWarning("Cannot hash %s: %v", path, err)
	} else {
		features.Hash = hash
	}

	logging.DebugLog("Extracted %d keypoints from %s (%dx%d)",
		len(features.Signature.Keypoints), path, features.Width, features.Height)
	return features, nil
}
