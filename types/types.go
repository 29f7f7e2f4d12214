package types

// Strategy names which scoring strategy produced a decision
type Strategy string

const (
	StrategyBruteForce Strategy = "bruteforce"
	StrategyFlann      Strategy = "flann"
	StrategyNone       Strategy = "none"
)

// UnknownLabel is the label of the fallback folder
const UnknownLabel = "unknown"

// ReferenceInfo describes one catalog entry for the journal
type ReferenceInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Destination string `json:"destination"`
	Keypoints   int    `json:"keypoints"`
	PHash       string `json:"phash"`
}

// SortDecision holds the outcome of sorting one file
type SortDecision struct {
	Path         string   `json:"path"`
	Filename     string   `json:"filename"`
	Destination  string   `json:"destination"`
	Label        string   `json:"label"`
	Strategy     Strategy `json:"strategy"`
	BFLabel      string   `json:"bf_label"`
	BFScore      int      `json:"bf_score"`
	FlannLabel   string   `json:"flann_label"`
	FlannScore   int      `json:"flann_score"`
	PHash        string   `json:"phash"`
	HashDistance int      `json:"hash_distance"`
	Size         int64    `json:"size"`
	SHA256       string   `json:"sha256"`
	Copied       bool     `json:"copied"`
}

// RunInfo describes one sorter invocation
type RunInfo struct {
	ID            string  `json:"id"`
	StartedAt     string  `json:"started_at"`
	FinishedAt    string  `json:"finished_at"`
	KnownDir      string  `json:"known_dir"`
	ToSortDir     string  `json:"to_sort_dir"`
	OutputDir     string  `json:"output_dir"`
	MinMatches    int     `json:"min_matches"`
	DistanceRatio float64 `json:"distance_ratio"`
	TieBreak      string  `json:"tie_break"`
	Status        string  `json:"status"`
}
