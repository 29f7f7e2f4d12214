package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"imagesorter/catalog"
	"imagesorter/config"
	"imagesorter/database"
	"imagesorter/imageprocessor"
	"imagesorter/logging"
	"imagesorter/signalhandler"
	"imagesorter/sorter"
	"imagesorter/types"
	"imagesorter/utils"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var errOutputLocked = errors.New("another sort is already writing to the output directory")

// flagValues holds raw CLI values; they only override the config when set.
type flagValues struct {
	configPath      string
	knownDir        string
	toSortDir       string
	outputDir       string
	minMatches      int
	ratio           string
	tieBreak        string
	continueOnError bool
	dryRun          bool
	journalPath     string
	noJournal       bool
	debug           bool
	logFile         string
}

func main() {
	var flags flagValues
	if err := newRootCommand(&flags).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(flags *flagValues) *cobra.Command {
	root := &cobra.Command{
		Use:   "imagesorter",
		Short: "Copy unsorted images into the folder of the reference image they match",
		Long: `imagesorter compares every .jpg/.jpeg in the unsorted folder against a set of
reference images using SIFT keypoints, and copies each file into
<out>/<reference name>/ or <out>/unknown/.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, *flags)
			if err != nil {
				return err
			}
			return handleSortCommand(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := root.Flags()
	f.StringVar(&flags.knownDir, "known", "", "directory of reference images")
	f.StringVar(&flags.toSortDir, "to-sort", "", "directory of images to sort")
	f.StringVar(&flags.outputDir, "out", "", "output root for sorted folders")
	f.IntVar(&flags.minMatches, "min-matches", 0, "matches a reference needs before it beats unknown")
	f.StringVar(&flags.ratio, "ratio", "", "distance ratio for the nearest neighbour test (0-1]")
	f.StringVar(&flags.tieBreak, "tie", "", "which reference wins equal scores: last or first")
	f.BoolVar(&flags.continueOnError, "continue-on-error", false, "log and skip unreadable images instead of stopping")
	f.BoolVar(&flags.dryRun, "dry-run", false, "decide and record without copying")
	f.BoolVar(&flags.noJournal, "no-journal", false, "do not record the run even if the config enables the journal")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "TOML file overriding the built-in defaults")
	pf.StringVar(&flags.journalPath, "journal", "", "record the run in a journal database at this path")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.logFile, "logfile", "", "write logs to this file")

	root.AddCommand(newReportCommand(flags))
	return root
}

// resolveConfig layers defaults, the optional config file and explicit flags.
func resolveConfig(cmd *cobra.Command, flags flagValues) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("known") {
		cfg.KnownDir = flags.knownDir
	}
	if changed("to-sort") {
		cfg.ToSortDir = flags.toSortDir
	}
	if changed("out") {
		cfg.OutputDir = flags.outputDir
	}
	if changed("min-matches") {
		cfg.MinMatches = flags.minMatches
	}
	if changed("ratio") {
		ratio, err := utils.ParseRatio(flags.ratio)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		cfg.DistanceRatio = ratio
	}
	if changed("tie") {
		cfg.TieBreak = flags.tieBreak
	}
	if changed("continue-on-error") {
		cfg.ContinueOnError = flags.continueOnError
	}
	if changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if changed("no-journal") {
		cfg.DisableJournal = flags.noJournal
	}
	if changed("journal") {
		cfg.JournalPath = flags.journalPath
	}
	if changed("debug") {
		cfg.Debug = flags.debug
	}
	if changed("logfile") {
		cfg.LogFile = flags.logFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) func() {
	logging.SetDebug(cfg.Debug)
	if cfg.LogFile == "" {
		return func() {}
	}
	if err := logging.SetupLogger(cfg.LogFile, cfg.Debug); err != nil {
		logging.LogWarning("Failed to setup log file: %v", err)
		return func() {}
	}
	return logging.CloseLogger
}

func handleSortCommand(parent context.Context, cfg config.Config, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	defer setupLogging(cfg)()

	ctx, cancel := signalhandler.SetupHandler(parent)
	defer cancel()

	if err := utils.EnsureDir(cfg.OutputDir); err != nil {
		return err
	}
	lock := flock.New(filepath.Join(cfg.OutputDir, ".imagesorter.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", errOutputLocked, cfg.OutputDir)
	}
	defer lock.Unlock()

	startTime := time.Now()
	fmt.Fprintln(out, "Initializing known images...")

	extractor := imageprocessor.NewExtractor(cfg.CropFactor)
	defer extractor.Close()

	cat, err := catalog.Build(catalog.BuildOptions{KnownDir: cfg.KnownDir, OutputDir: cfg.OutputDir}, extractor)
	if err != nil {
		return err
	}
	defer cat.Close()

	options := sorter.Options{
		ToSortDir:       cfg.ToSortDir,
		MinMatches:      cfg.MinMatches,
		DistanceRatio:   cfg.DistanceRatio,
		TieBreak:        sorter.ParseTieBreak(cfg.TieBreak),
		ContinueOnError: cfg.ContinueOnError,
		DryRun:          cfg.DryRun,
	}
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		options.Progress = f
	}

	db, journal, err := openJournal(cfg, cat, startTime)
	if err != nil {
		return err
	}
	var recorder sorter.Recorder
	if journal != nil {
		defer db.Close()
		recorder = journal
	}

	sorter.PrintStartupInfo(out, cat.Len(), options)
	summary, sortErr := sorter.SortAll(ctx, cat, extractor, options, recorder)

	if journal != nil {
		status := "completed"
		switch {
		case errors.Is(sortErr, context.Canceled):
			status = "cancelled"
		case sortErr != nil:
			status = "failed"
		}
		if err := database.FinishRun(db, journal.RunID, status); err != nil {
			logging.LogWarning("Cannot finish journal run: %v", err)
		}
	}

	if sortErr != nil {
		return sortErr
	}

	summary.Elapsed = time.Since(startTime)
	logging.LogInfo("Sorted %d of %d files from %s in %s", summary.Sorted, summary.Listed, cfg.ToSortDir, summary.Elapsed.Round(time.Millisecond))
	sorter.PrintCompletionStats(out, summary)
	return nil
}

// openJournal starts a journal run and records the catalog. It returns a nil
// journal unless the config asks for one.
func openJournal(cfg config.Config, cat *catalog.Catalog, started time.Time) (*sql.DB, *database.Journal, error) {
	path := cfg.ResolvedJournalPath()
	if path == "" {
		return nil, nil, nil
	}

	db, err := database.InitDatabase(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	runID, err := database.StartRun(db, types.RunInfo{
		StartedAt:     started.UTC().Format(time.RFC3339Nano),
		KnownDir:      cfg.KnownDir,
		ToSortDir:     cfg.ToSortDir,
		OutputDir:     cfg.OutputDir,
		MinMatches:    cfg.MinMatches,
		DistanceRatio: cfg.DistanceRatio,
		TieBreak:      cfg.TieBreak,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	for _, ref := range cat.References() {
		if err := database.RecordReference(db, runID, ref); err != nil {
			logging.LogWarning("Cannot record reference %s: %v", ref.Name, err)
		}
	}

	logging.LogInfo("Recording run %s in %s", runID, path)
	return db, &database.Journal{DB: db, RunID: runID}, nil
}
