package imageprocessor

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrImageLoad is wrapped by every loader failure.
var ErrImageLoad = errors.New("failed to load image")

// ImageLoader interface defines methods for image loading
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads an image and returns a 3-channel BGR gocv.Mat
	LoadImage(path string) (gocv.Mat, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// DefaultLoadImage reads the file with OpenCV in color mode
func (l *BaseImageLoader) DefaultLoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, newImageLoadError("opencv could not decode", path)
	}
	return img, nil
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ImageLoadError describes a file that no loader could decode.
type ImageLoadError struct {
	Path   string
	Reason string
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *ImageLoadError) Unwrap() error {
	return ErrImageLoad
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(reason, path string) error {
	return &ImageLoadError{Path: path, Reason: reason}
}
