package imageprocessor

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultCropFactor keeps the full image height. The bounds are clamped to
// the image, so any factor >= 1 leaves the image untouched.
const DefaultCropFactor = 2.0

// CropBounds returns the region kept by preprocessing: the full width and
// factor*height rows from the top, clamped to the image.
func CropBounds(width, height int, factor float64) image.Rectangle {
	rows := int(factor * float64(height))
	if rows > height {
		rows = height
	}
	if rows < 1 && height > 0 {
		rows = 1
	}
	return image.Rect(0, 0, width, rows)
}

// Preprocessor turns an image file into the single-channel Mat that
// signatures are extracted from.
type Preprocessor struct {
	registry   *ImageLoaderRegistry
	cropFactor float64
}

// NewPreprocessor creates a preprocessor using the default loader registry
func NewPreprocessor(cropFactor float64) *Preprocessor {
	if cropFactor <= 0 {
		cropFactor = DefaultCropFactor
	}
	return &Preprocessor{
		registry:   NewImageLoaderRegistry(),
		cropFactor: cropFactor,
	}
}

// Preprocess decodes path, crops it and converts it to grayscale.
// The caller owns the returned Mat.
func (p *Preprocessor) Preprocess(path string) (gocv.Mat, error) {
	colorImg, err := p.registry.LoadImage(path)
	if err != nil {
		colorImg.Close()
		return gocv.NewMat(), err
	}
	defer colorImg.Close()

	cropped := colorImg.Region(CropBounds(colorImg.Cols(), colorImg.Rows(), p.cropFactor))
	defer cropped.Close()

	gray := gocv.NewMat()
	switch cropped.Channels() {
	case 1:
		cropped.CopyTo(&gray)
	case 4:
		gocv.CvtColor(cropped, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(cropped, &gray, gocv.ColorBGRToGray)
	}

	if gray.Empty() {
		gray.Close()
		return gocv.NewMat(), newImageLoadError("grayscale conversion produced an empty image", path)
	}
	return gray, nil
}
