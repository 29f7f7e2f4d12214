package sorter

import (
	"io"
	"time"

	"imagesorter/catalog"
	"imagesorter/imageprocessor"
	"imagesorter/types"
)

// TieBreak decides which entry wins when two references score the same.
type TieBreak int

const (
	// TieLastWins lets a later entry replace the best on an equal score.
	TieLastWins TieBreak = iota
	// TieFirstWins keeps the earliest entry on an equal score.
	TieFirstWins
)

// ParseTieBreak maps the config names "last" and "first"
func ParseTieBreak(name string) TieBreak {
	if name == "first" {
		return TieFirstWins
	}
	return TieLastWins
}

func (t TieBreak) String() string {
	if t == TieFirstWins {
		return "first"
	}
	return "last"
}

// Options defines the options for a sort pass
type Options struct {
	ToSortDir       string
	MinMatches      int
	DistanceRatio   float64
	TieBreak        TieBreak
	ContinueOnError bool
	DryRun          bool
	Progress        io.Writer // nil disables the progress bar
}

// Strategy is a named scoring function
type Strategy struct {
	Name  types.Strategy
	Score imageprocessor.ScoreFunc
}

// Selection is the best entry found by one strategy. A nil Entry means no
// reference reached the floor.
type Selection struct {
	Entry *catalog.Entry
	Score int
}

// IsBaseline reports whether no reference was selected
func (s Selection) IsBaseline() bool {
	return s.Entry == nil
}

// Label returns the selected reference name or "unknown"
func (s Selection) Label() string {
	if s.Entry == nil {
		return types.UnknownLabel
	}
	return s.Entry.Name
}

// Decision is the reconciled destination for one file
type Decision struct {
	Destination string
	Label       string
	Strategy    types.Strategy
	BruteForce  Selection
	Flann       Selection
}

// Recorder receives every decision, typically the sort journal.
type Recorder interface {
	RecordDecision(d types.SortDecision) error
}

// Summary tracks the outcome of a sort pass
type Summary struct {
	Listed   int
	Eligible int
	Sorted   int
	Unknown  int
	Failed   int
	PerLabel map[string]int
	Elapsed  time.Duration
}
