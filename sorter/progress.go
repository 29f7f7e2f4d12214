package sorter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"

	"imagesorter/logging"
)

// ProgressTracker draws a per-file progress bar. A tracker without a writer
// only counts.
type ProgressTracker struct {
	bar       *progressbar.ProgressBar
	processed int
	total     int
}

// NewProgressTracker initializes the progress tracker for total files
func NewProgressTracker(total int, w io.Writer) *ProgressTracker {
	tracker := &ProgressTracker{total: total}
	if w == nil {
		return tracker
	}

	tracker.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Sorting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
	return tracker
}

// Step records one processed directory entry
func (p *ProgressTracker) Step() {
	p.processed++
	if p.bar != nil {
		if err := p.bar.Add(1); err != nil {
			logging.DebugLog("Progress bar update failed: %v", err)
		}
	}
}

// Stop ends the progress display
func (p *ProgressTracker) Stop() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// PrintStartupInfo displays information about the sort before starting
func PrintStartupInfo(w io.Writer, catalogSize int, options Options) {
	fmt.Fprintf(w, "Sorting: %s\n", options.ToSortDir)
	fmt.Fprintf(w, "References: %d, minimum matches: %d, distance ratio: %.2f, ties: %s\n",
		catalogSize, options.MinMatches, options.DistanceRatio, options.TieBreak)
	if options.DryRun {
		fmt.Fprintln(w, "Dry run: no files will be copied")
	}
}

// PrintCompletionStats displays statistics after the sort completes
func PrintCompletionStats(w io.Writer, summary *Summary) {
	fmt.Fprintln(w, "Sorting complete.")
	fmt.Fprintf(w, "Sorted %d of %d images in %v (%d unknown).\n",
		summary.Sorted, summary.Eligible, summary.Elapsed.Round(time.Millisecond), summary.Unknown)

	labels := make([]string, 0, len(summary.PerLabel))
	for label := range summary.PerLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(w, "  %s: %d\n", label, summary.PerLabel[label])
	}

	if summary.Failed > 0 {
		fmt.Fprintf(w, "Encountered %d errors while sorting.\n", summary.Failed)
		fmt.Fprintln(w, "Check the log for details.")
	}
}
