// Package testsupport generates image fixtures for tests.
package testsupport

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// TexturedImage draws a deterministic pattern of overlapping rectangles.
// Different seeds give visually unrelated images with plenty of corners.
func TexturedImage(seed int64, width, height int) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: randomColor(rng)}, image.Point{}, draw.Src)

	for i := 0; i < 80; i++ {
		x := rng.Intn(width - 10)
		y := rng.Intn(height - 10)
		w := 8 + rng.Intn(width/4)
		h := 8 + rng.Intn(height/4)
		rect := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
		draw.Draw(img, rect, &image.Uniform{C: randomColor(rng)}, image.Point{}, draw.Src)
	}
	return img
}

func randomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(rng.Intn(256)),
		G: uint8(rng.Intn(256)),
		B: uint8(rng.Intn(256)),
		A: 255,
	}
}

// SolidImage returns a featureless single-colour image.
func SolidImage(c color.Color, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// CenterCrop returns the middle fraction of img in both dimensions.
func CenterCrop(img *image.RGBA, fraction float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * fraction)
	h := int(float64(b.Dy()) * fraction)
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2
	return img.SubImage(image.Rect(x, y, x+w, y+h))
}

// WriteJPEG encodes img at high quality to path, creating parent directories.
func WriteJPEG(t testing.TB, path string, img image.Image) {
	t.Helper()
	WriteJPEGQuality(t, path, img, 95)
}

// WriteJPEGQuality encodes img at the given JPEG quality.
func WriteJPEGQuality(t testing.TB, path string, img image.Image, quality int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteTexturedJPEG writes TexturedImage(seed) to path.
func WriteTexturedJPEG(t testing.TB, path string, seed int64) {
	t.Helper()
	WriteJPEG(t, path, TexturedImage(seed, 320, 240))
}

// WriteFile writes raw bytes to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CopyFixture duplicates src to dst byte for byte.
func CopyFixture(t testing.TB, src, dst string) {
	t.Helper()

	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read %s: %v", src, err)
	}
	WriteFile(t, dst, data)
}

// SHA256File returns the hex digest of the file at path.
func SHA256File(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
