// Package catalog builds the read-only set of reference images that unsorted
// images are compared against.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"imagesorter/imageprocessor"
	"imagesorter/logging"
	"imagesorter/types"
	"imagesorter/utils"

	"github.com/corona10/goimagehash"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrReferenceDecode is returned when a reference image cannot be read.
	ErrReferenceDecode = errors.New("cannot decode reference image")
	// ErrDuplicateLabel is returned when two references map to one folder.
	ErrDuplicateLabel = errors.New("duplicate reference label")
)

// Entry is one reference image with its signature and output folder.
type Entry struct {
	Name        string
	SourcePath  string
	Destination string
	Signature   imageprocessor.Signature
	Hash        *goimagehash.ImageHash
}

// Catalog is the ordered, immutable list of references.
type Catalog struct {
	entries    []Entry
	unknownDir string
}

// New wraps prepared entries. Build is the usual constructor.
func New(entries []Entry, unknownDir string) *Catalog {
	return &Catalog{
		entries:    append([]Entry(nil), entries...),
		unknownDir: unknownDir,
	}
}

// Entries returns the references in catalog order. The slice is a copy but
// the signatures are shared and must not be closed by the caller.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of references
func (c *Catalog) Len() int {
	return len(c.entries)
}

// UnknownDir is the folder for images no reference claims
func (c *Catalog) UnknownDir() string {
	return c.unknownDir
}

// References summarizes the entries for the journal
func (c *Catalog) References() []types.ReferenceInfo {
	refs := make([]types.ReferenceInfo, 0, len(c.entries))
	for _, e := range c.entries {
		refs = append(refs, types.ReferenceInfo{
			Name:        e.Name,
			Path:        e.SourcePath,
			Destination: e.Destination,
			Keypoints:   e.Signature.Len(),
			PHash:       imageprocessor.HashString(e.Hash),
		})
	}
	return refs
}

// Close releases every signature
func (c *Catalog) Close() {
	for i := range c.entries {
		c.entries[i].Signature.Close()
	}
}

// Extractor produces the features of one image file.
type Extractor interface {
	ExtractFile(path string) (imageprocessor.Features, error)
}

// BuildOptions locates the references and the output root.
type BuildOptions struct {
	KnownDir  string
	OutputDir string
}

// Build reads every reference in KnownDir in lexicographic order and creates
// one output folder per reference plus the shared unknown folder.
func Build(opts BuildOptions, extractor Extractor) (*Catalog, error) {
	unknownDir := filepath.Join(opts.OutputDir, types.UnknownLabel)
	if err := utils.EnsureDir(unknownDir); err != nil {
		return nil, err
	}

	names, err := listReferences(opts.KnownDir)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{unknownDir: unknownDir}
	seen := map[string]string{types.UnknownLabel: "the unknown folder"}

	for _, name := range names {
		path := filepath.Join(opts.KnownDir, name)
		label := utils.LabelFromFilename(name)

		if prev, ok := seen[label]; ok {
			cat.Close()
			return nil, fmt.Errorf("%w: %s collides with %s", ErrDuplicateLabel, path, prev)
		}
		seen[label] = path

		features, err := extractor.ExtractFile(path)
		if err != nil {
			cat.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrReferenceDecode, path, err)
		}

		destination := filepath.Join(opts.OutputDir, label)
		if err := utils.EnsureDir(destination); err != nil {
			features.Close()
			cat.Close()
			return nil, err
		}

		if features.Signature.Empty() {
			logging.LogWarning("Reference %s has no keypoints and will never match", path)
		}

		cat.entries = append(cat.entries, Entry{
			Name:        label,
			SourcePath:  path,
			Destination: destination,
			Signature:   features.Signature,
			Hash:        features.Hash,
		})

		logging.Logger().WithFields(log.Fields{
			"reference": label,
			"keypoints": features.Signature.Len(),
		}).Debug("Added reference")
	}

	if len(cat.entries) == 0 {
		logging.LogWarning("No reference images in %s, every image will go to %s", opts.KnownDir, unknownDir)
	} else {
		logging.LogInfo("Loaded %d reference images from %s", len(cat.entries), opts.KnownDir)
	}

	return cat, nil
}

// listReferences returns the candidate reference file names sorted by name.
// Files without an image extension are skipped with a warning.
func listReferences(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read known directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || utils.IsIgnoredName(entry.Name()) {
			continue
		}
		if !imageprocessor.IsImageFile(entry.Name()) {
			logging.LogWarning("Skipping %s in %s: not an image file", entry.Name(), dir)
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
