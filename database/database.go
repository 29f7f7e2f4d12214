package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imagesorter/logging"
	"imagesorter/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNoRuns is returned when the journal has no recorded runs.
	ErrNoRuns = errors.New("journal has no runs")
	// ErrRunNotFound is returned for a run id the journal does not know.
	ErrRunNotFound = errors.New("run not found")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	known_dir TEXT,
	to_sort_dir TEXT,
	output_dir TEXT,
	min_matches INTEGER,
	distance_ratio REAL,
	tie_break TEXT,
	status TEXT
);
CREATE TABLE IF NOT EXISTS reference_images (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	path TEXT,
	destination TEXT,
	keypoints INTEGER,
	phash TEXT,
	UNIQUE(run_id, name)
);
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	filename TEXT,
	destination TEXT,
	label TEXT,
	strategy TEXT,
	bf_label TEXT,
	bf_score INTEGER,
	flann_label TEXT,
	flann_score INTEGER,
	phash TEXT,
	hash_distance INTEGER,
	size INTEGER,
	sha256 TEXT,
	copied INTEGER,
	decided_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
CREATE INDEX IF NOT EXISTS idx_decisions_label ON decisions(run_id, label);`

// InitDatabase opens the journal at dbPath, creating it and its schema if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	logging.DebugLog("Journal ready at %s", dbPath)
	return db, nil
}

// OpenDatabase opens an existing journal
func OpenDatabase(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("journal %s: %w", dbPath, err)
	}
	return sql.Open("sqlite3", dbPath)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// StartRun inserts a run row and returns its id. A missing id is generated.
func StartRun(db *sql.DB, info types.RunInfo) (string, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if info.StartedAt == "" {
		info.StartedAt = now()
	}

	_, err := db.Exec(`
		INSERT INTO runs (id, started_at, known_dir, to_sort_dir, output_dir, min_matches, distance_ratio, tie_break, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'running')`,
		info.ID, info.StartedAt, info.KnownDir, info.ToSortDir, info.OutputDir,
		info.MinMatches, info.DistanceRatio, info.TieBreak,
	)
	if err != nil {
		return "", fmt.Errorf("cannot insert run: %w", err)
	}
	return info.ID, nil
}

// FinishRun stamps the run with its final status
func FinishRun(db *sql.DB, runID string, status string) error {
	_, err := db.Exec(`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`, now(), status, runID)
	if err != nil {
		return fmt.Errorf("cannot finish run %s: %w", runID, err)
	}
	return nil
}

// RecordReference stores one catalog entry for a run
func RecordReference(db *sql.DB, runID string, ref types.ReferenceInfo) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO reference_images (run_id, name, path, destination, keypoints, phash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, ref.Name, ref.Path, ref.Destination, ref.Keypoints, ref.PHash,
	)
	if err != nil {
		return fmt.Errorf("cannot insert reference %s: %w", ref.Name, err)
	}
	return nil
}

// RecordDecision stores the outcome for one sorted file
func RecordDecision(db *sql.DB, runID string, d types.SortDecision) error {
	stmt, err := db.Prepare(`
		INSERT INTO decisions (
			run_id, path, filename, destination, label, strategy, bf_label, bf_score,
			flann_label, flann_score, phash, hash_distance, size, sha256, copied, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", d.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		runID, d.Path, d.Filename, d.Destination, d.Label, string(d.Strategy),
		d.BFLabel, d.BFScore, d.FlannLabel, d.FlannScore, d.PHash, d.HashDistance,
		d.Size, d.SHA256, d.Copied, now(),
	)
	if err != nil {
		return fmt.Errorf("cannot insert decision for %s: %w", d.Path, err)
	}
	return nil
}

// Journal binds a database to one run so the sorter can record decisions.
type Journal struct {
	DB    *sql.DB
	RunID string
}

// RecordDecision implements the sorter's recorder
func (j *Journal) RecordDecision(d types.SortDecision) error {
	return RecordDecision(j.DB, j.RunID, d)
}

// ListRuns returns the most recent runs first
func ListRuns(db *sql.DB, limit int) ([]types.RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, started_at, COALESCE(finished_at, ''), known_dir, to_sort_dir, output_dir,
		       min_matches, distance_ratio, tie_break, status
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunInfo
	for rows.Next() {
		var r types.RunInfo
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.KnownDir, &r.ToSortDir,
			&r.OutputDir, &r.MinMatches, &r.DistanceRatio, &r.TieBreak, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ResolveRunID returns runID when it exists, or the latest run when runID
// is empty
func ResolveRunID(db *sql.DB, runID string) (string, error) {
	if runID != "" {
		var found string
		err := db.QueryRow(`SELECT id FROM runs WHERE id = ?`, runID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err != nil {
			return "", fmt.Errorf("failed to look up run %s: %w", runID, err)
		}
		return found, nil
	}
	err := db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return runID, nil
}

// RunStats contains statistics for one run
type RunStats struct {
	TotalDecisions int
	UnknownCount   int
	BruteForceWins int
	FlannWins      int
	BytesCopied    int64
}

// GetRunStats retrieves statistics about a run
func GetRunStats(db *sql.DB, runID string) (*RunStats, error) {
	var stats RunStats
	err := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN label = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN strategy = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN strategy = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN copied THEN size ELSE 0 END), 0)
		FROM decisions WHERE run_id = ?`,
		types.UnknownLabel, string(types.StrategyBruteForce), string(types.StrategyFlann), runID,
	).Scan(&stats.TotalDecisions, &stats.UnknownCount, &stats.BruteForceWins, &stats.FlannWins, &stats.BytesCopied)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}
	return &stats, nil
}

// LabelCount is the number of files sorted into one label
type LabelCount struct {
	Label string
	Count int
}

// GetLabelCounts returns per-label totals for a run, largest first
func GetLabelCounts(db *sql.DB, runID string) ([]LabelCount, error) {
	rows, err := db.Query(`
		SELECT label, COUNT(*) FROM decisions WHERE run_id = ?
		GROUP BY label ORDER BY COUNT(*) DESC, label ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count labels: %w", err)
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}

// GetWinningScores returns the score of the deciding strategy for every
// file that was not sent to unknown.
func GetWinningScores(db *sql.DB, runID string) ([]float64, error) {
	rows, err := db.Query(`
		SELECT CASE WHEN strategy = ? THEN bf_score ELSE flann_score END
		FROM decisions WHERE run_id = ? AND strategy != ?`,
		string(types.StrategyBruteForce), runID, string(types.StrategyNone))
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, float64(s))
	}
	return scores, rows.Err()
}
