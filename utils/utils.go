package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ignoredNames are OS artifacts that show up next to real images
var ignoredNames = map[string]bool{
	".DS_Store":                 true,
	"Thumbs.db":                 true,
	"desktop.ini":               true,
	".Spotlight-V100":           true,
	".Trashes":                  true,
	".fseventsd":                true,
	"$RECYCLE.BIN":              true,
	"System Volume Information": true,
}

// IsIgnoredName reports whether a directory entry is an OS artifact or a
// hidden file that must never be treated as an image.
func IsIgnoredName(name string) bool {
	if ignoredNames[name] {
		return true
	}
	return strings.HasPrefix(name, ".")
}

// LabelFromFilename strips the directory and the last extension
func LabelFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureDir creates path and its parents if missing
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// ParseRatio parses and validates a distance ratio from string
func ParseRatio(ratioStr string) (float64, error) {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(ratioStr), 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		return 0, fmt.Errorf("invalid distance ratio %q: must be a number in (0, 1]", ratioStr)
	}
	return ratio, nil
}
