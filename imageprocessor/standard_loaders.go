package imageprocessor

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"imagesorter/logging"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// StandardImageLoader handles the formats OpenCV decodes natively.
// Files OpenCV rejects are retried through the Go image decoders.
type StandardImageLoader struct {
	BaseImageLoader
	fallback *GoImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatBMP,
				FormatWEBP,
			},
		},
		fallback: NewGoImageLoader(),
	}
}

// LoadImage loads a standard image format
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := l.DefaultLoadImage(path)
	if err == nil {
		return img, nil
	}
	img.Close()

	logging.DebugLog("OpenCV could not decode %s, trying Go decoders", path)
	return l.fallback.LoadImage(path)
}

// GoImageLoader decodes with the Go image packages and converts the result
// to an OpenCV Mat. It covers TIFF and GIF, which OpenCV builds often lack.
type GoImageLoader struct {
	BaseImageLoader
}

// NewGoImageLoader creates a loader backed by image.Decode
func NewGoImageLoader() *GoImageLoader {
	return &GoImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatTIFF,
				FormatGIF,
				FormatBMP,
				FormatWEBP,
				FormatJPEG,
				FormatPNG,
			},
		},
	}
}

// LoadImage decodes path and returns a 3-channel Mat
func (l *GoImageLoader) LoadImage(path string) (gocv.Mat, error) {
	img, err := decodeGoImage(path)
	if err != nil {
		return gocv.NewMat(), newImageLoadError("go decoders could not decode ("+err.Error()+")", path)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), newImageLoadError("cannot convert decoded image ("+err.Error()+")", path)
	}
	if mat.Empty() {
		return mat, newImageLoadError("decoded image is empty", path)
	}
	return mat, nil
}

func decodeGoImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
