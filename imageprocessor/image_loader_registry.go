package imageprocessor

import (
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a new image loader registry
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	registry.registerStandardLoaders()
	registry.registerGoLoaders()

	return registry
}

// registerStandardLoaders registers loaders for standard image formats
func (r *ImageLoaderRegistry) registerStandardLoaders() {
	standardLoader := NewStandardImageLoader()

	r.RegisterLoader(".jpg", standardLoader)
	r.RegisterLoader(".jpeg", standardLoader)
	r.RegisterLoader(".png", standardLoader)
	r.RegisterLoader(".bmp", standardLoader)
	r.RegisterLoader(".webp", standardLoader)

	// Unknown extensions still get a chance through OpenCV's content sniffing.
	r.defaultLoader = standardLoader
}

// registerGoLoaders registers formats decoded by the Go image packages
func (r *ImageLoaderRegistry) registerGoLoaders() {
	goLoader := NewGoImageLoader()
	r.RegisterLoader(".tif", goLoader)
	r.RegisterLoader(".tiff", goLoader)
	r.RegisterLoader(".gif", goLoader)
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	r.loaders[ext] = loader
}

// GetLoader returns the loader registered for the path's extension when it
// accepts the file, and the default loader otherwise.
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok && loader.CanLoad(path) {
		return loader
	}

	return r.defaultLoader
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	if !fileExists(path) {
		return gocv.NewMat(), newImageLoadError("file does not exist", path)
	}

	loader := r.GetLoader(path)
	if loader == nil {
		return gocv.NewMat(), newImageLoadError("no suitable loader found", path)
	}

	return loader.LoadImage(path)
}
