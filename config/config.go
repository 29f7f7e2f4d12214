// Package config holds the sorter settings: compiled-in defaults, an
// optional TOML override file and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Tie-break policies for equal scores.
const (
	TieLast  = "last"
	TieFirst = "first"
)

// Config contains every tunable of a sort run.
type Config struct {
	KnownDir        string  `toml:"known_dir"`
	ToSortDir       string  `toml:"to_sort_dir"`
	OutputDir       string  `toml:"output_dir"`
	MinMatches      int     `toml:"min_matches"`
	DistanceRatio   float64 `toml:"distance_ratio"`
	CropFactor      float64 `toml:"crop_factor"`
	TieBreak        string  `toml:"tie_break"`
	ContinueOnError bool    `toml:"continue_on_error"`
	DryRun          bool    `toml:"dry_run"`
	Journal         bool    `toml:"journal"`
	JournalPath     string  `toml:"journal_path"`
	DisableJournal  bool    `toml:"disable_journal"`
	LogFile         string  `toml:"log_file"`
	Debug           bool    `toml:"debug"`
}

// Default returns the settings the tool runs with when given no arguments.
func Default() Config {
	return Config{
		KnownDir:      "sample_known/",
		ToSortDir:     "sample_to_sort/",
		OutputDir:     "sorted/",
		MinMatches:    2,
		DistanceRatio: 0.70,
		CropFactor:    2.0,
		TieBreak:      TieLast,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.KnownDir = strings.TrimSpace(c.KnownDir)
	c.ToSortDir = strings.TrimSpace(c.ToSortDir)
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.TieBreak = strings.ToLower(strings.TrimSpace(c.TieBreak))
	if c.TieBreak == "" {
		c.TieBreak = TieLast
	}
}

// Validate checks the settings for values the sorter cannot work with.
func (c *Config) Validate() error {
	c.normalize()

	var problems []string
	if c.KnownDir == "" {
		problems = append(problems, "known_dir is empty")
	}
	if c.ToSortDir == "" {
		problems = append(problems, "to_sort_dir is empty")
	}
	if c.OutputDir == "" {
		problems = append(problems, "output_dir is empty")
	}
	if c.MinMatches < 0 {
		problems = append(problems, "min_matches must be >= 0")
	}
	if c.DistanceRatio <= 0 || c.DistanceRatio > 1 {
		problems = append(problems, "distance_ratio must be in (0, 1]")
	}
	if c.CropFactor <= 0 {
		problems = append(problems, "crop_factor must be > 0")
	}
	if c.TieBreak != TieLast && c.TieBreak != TieFirst {
		problems = append(problems, fmt.Sprintf("tie_break must be %q or %q", TieLast, TieFirst))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// DefaultJournalPath is the journal location under the output root.
func (c *Config) DefaultJournalPath() string {
	return filepath.Join(c.OutputDir, ".imagesorter.db")
}

// ResolvedJournalPath returns where the journal lives, or "" when no journal
// is kept. The journal is opt-in: an explicit journal_path or journal = true
// enables it, and disable_journal always wins.
func (c *Config) ResolvedJournalPath() string {
	switch {
	case c.DisableJournal:
		return ""
	case c.JournalPath != "":
		return c.JournalPath
	case c.Journal:
		return c.DefaultJournalPath()
	}
	return ""
}
