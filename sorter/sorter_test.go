package sorter

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"imagesorter/catalog"
	"imagesorter/imageprocessor"
	"imagesorter/internal/testsupport"
	"imagesorter/types"

	"gocv.io/x/gocv"
)

// tagged builds a signature whose keypoint count identifies it to the fake
// scoring functions below.
func tagged(tag int) imageprocessor.Signature {
	return imageprocessor.Signature{Keypoints: make([]gocv.KeyPoint, tag)}
}

type tagExtractor struct {
	tags map[string]int
	fail map[string]bool
}

func (e *tagExtractor) ExtractFile(path string) (imageprocessor.Features, error) {
	name := filepath.Base(path)
	if e.fail[name] {
		return imageprocessor.Features{}, imageprocessor.ErrImageLoad
	}
	return imageprocessor.Features{Signature: tagged(e.tags[name])}, nil
}

// scoreTable returns a ScoreFunc reading table[refTag][queryTag].
func scoreTable(table map[int]map[int]int) imageprocessor.ScoreFunc {
	return func(ref, query imageprocessor.Signature, _ float64) int {
		return table[len(ref.Keypoints)][len(query.Keypoints)]
	}
}

type memoryRecorder struct {
	decisions []types.SortDecision
}

func (m *memoryRecorder) RecordDecision(d types.SortDecision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

type fixture struct {
	toSort string
	out    string
	cat    *catalog.Catalog
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	base := t.TempDir()
	f := fixture{
		toSort: filepath.Join(base, "to_sort"),
		out:    filepath.Join(base, "sorted"),
	}
	for _, dir := range []string{"cat", "dog", "unknown"} {
		if err := os.MkdirAll(filepath.Join(f.out, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	f.cat = catalog.New([]catalog.Entry{
		{Name: "cat", Destination: filepath.Join(f.out, "cat"), Signature: tagged(10)},
		{Name: "dog", Destination: filepath.Join(f.out, "dog"), Signature: tagged(20)},
	}, filepath.Join(f.out, "unknown"))

	testsupport.WriteFile(t, filepath.Join(f.toSort, "a.jpg"), []byte("image-a"))
	testsupport.WriteFile(t, filepath.Join(f.toSort, "b.jpeg"), []byte("image-b"))
	testsupport.WriteFile(t, filepath.Join(f.toSort, "c.png"), []byte("image-c"))
	testsupport.WriteFile(t, filepath.Join(f.toSort, "d.jpg"), []byte("image-d"))
	testsupport.WriteFile(t, filepath.Join(f.toSort, "notes.txt"), []byte("notes"))
	return f
}

func (f fixture) sorter(extractor catalog.Extractor, opts Options, rec Recorder) *Sorter {
	opts.ToSortDir = f.toSort
	if opts.MinMatches == 0 {
		opts.MinMatches = 2
	}
	if opts.DistanceRatio == 0 {
		opts.DistanceRatio = imageprocessor.DefaultDistanceRatio
	}
	s := NewSorter(f.cat, extractor, opts, rec)
	// a: brute force says cat, FLANN says dog.
	// b: only FLANN finds dog.
	// d: nothing clears the floor.
	s.bruteForce.Score = scoreTable(map[int]map[int]int{
		10: {1: 20},
		20: {1: 5, 2: 1},
	})
	s.flann.Score = scoreTable(map[int]map[int]int{
		10: {1: 3},
		20: {1: 50, 2: 15, 4: 1},
	})
	return s
}

func defaultTags() *tagExtractor {
	return &tagExtractor{tags: map[string]int{"a.jpg": 1, "b.jpeg": 2, "d.jpg": 4}}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRunSortsAndReconciles(t *testing.T) {
	f := newFixture(t)
	rec := &memoryRecorder{}

	summary, err := f.sorter(defaultTags(), Options{}, rec).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	wantPaths := map[string]string{
		"a.jpg":  filepath.Join(f.out, "cat", "a.jpg"),
		"b.jpeg": filepath.Join(f.out, "dog", "b.jpeg"),
		"d.jpg":  filepath.Join(f.out, "unknown", "d.jpg"),
	}
	for name, dst := range wantPaths {
		if !exists(dst) {
			t.Fatalf("%s not copied to %s", name, dst)
		}
		src := filepath.Join(f.toSort, name)
		if testsupport.SHA256File(t, src) != testsupport.SHA256File(t, dst) {
			t.Fatalf("copy of %s is not byte-exact", name)
		}
		if !exists(src) {
			t.Fatalf("source %s should be left in place", src)
		}
	}

	for _, dir := range []string{"cat", "dog", "unknown"} {
		for _, skipped := range []string{"c.png", "notes.txt"} {
			if exists(filepath.Join(f.out, dir, skipped)) {
				t.Fatalf("%s must not be copied into %s", skipped, dir)
			}
		}
	}

	if summary.Listed != 5 || summary.Eligible != 3 || summary.Sorted != 3 || summary.Unknown != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if len(rec.decisions) != 3 {
		t.Fatalf("recorded %d decisions, want 3", len(rec.decisions))
	}
	a := rec.decisions[0]
	if a.Label != "cat" || a.Strategy != types.StrategyBruteForce || a.FlannLabel != "dog" || a.BFScore != 20 {
		t.Fatalf("brute force should take priority: %+v", a)
	}
	b := rec.decisions[1]
	if b.Label != "dog" || b.Strategy != types.StrategyFlann || b.BFLabel != types.UnknownLabel {
		t.Fatalf("flann fallback expected: %+v", b)
	}
	d := rec.decisions[2]
	if d.Label != types.UnknownLabel || d.Strategy != types.StrategyNone || d.BFScore != 2 {
		t.Fatalf("unknown expected with floor score: %+v", d)
	}
	if a.SHA256 == "" || !a.Copied || a.Size != int64(len("image-a")) {
		t.Fatalf("copy metadata missing: %+v", a)
	}
}

func TestRunOverwritesExistingFile(t *testing.T) {
	f := newFixture(t)
	stale := filepath.Join(f.out, "cat", "a.jpg")
	testsupport.WriteFile(t, stale, []byte("an older and much longer file body"))

	if _, err := f.sorter(defaultTags(), Options{}, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(stale)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "image-a" {
		t.Fatalf("existing file not replaced, got %q", got)
	}
}

func TestRunStopsOnUndecodableImage(t *testing.T) {
	f := newFixture(t)
	extractor := defaultTags()
	extractor.fail = map[string]bool{"b.jpeg": true}

	summary, err := f.sorter(extractor, Options{}, nil).Run(context.Background())
	if !errors.Is(err, ErrQueryDecode) {
		t.Fatalf("expected ErrQueryDecode, got %v", err)
	}
	if !exists(filepath.Join(f.out, "cat", "a.jpg")) {
		t.Fatal("files sorted before the failure should remain")
	}
	if exists(filepath.Join(f.out, "unknown", "d.jpg")) {
		t.Fatal("files after the failure should not be processed")
	}
	if summary.Sorted != 1 {
		t.Fatalf("sorted %d, want 1", summary.Sorted)
	}
}

func TestRunContinueOnError(t *testing.T) {
	f := newFixture(t)
	extractor := defaultTags()
	extractor.fail = map[string]bool{"b.jpeg": true}

	summary, err := f.sorter(extractor, Options{ContinueOnError: true}, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || summary.Sorted != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !exists(filepath.Join(f.out, "unknown", "d.jpg")) {
		t.Fatal("processing should continue after a decode failure")
	}
}

func TestRunDryRunCopiesNothing(t *testing.T) {
	f := newFixture(t)
	rec := &memoryRecorder{}

	if _, err := f.sorter(defaultTags(), Options{DryRun: true}, rec).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if exists(filepath.Join(f.out, "cat", "a.jpg")) {
		t.Fatal("dry run must not copy")
	}
	if len(rec.decisions) != 3 || rec.decisions[0].Copied || rec.decisions[0].SHA256 == "" {
		t.Fatalf("dry run should still record hashed decisions: %+v", rec.decisions)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.sorter(defaultTags(), Options{}, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if exists(filepath.Join(f.out, "cat", "a.jpg")) {
		t.Fatal("nothing should be copied after cancellation")
	}
}

func TestRunWithEmptyCatalogSendsEverythingToUnknown(t *testing.T) {
	f := newFixture(t)
	f.cat = catalog.New(nil, filepath.Join(f.out, "unknown"))
	rec := &memoryRecorder{}

	summary, err := f.sorter(defaultTags(), Options{}, rec).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Sorted != 3 || summary.Unknown != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, name := range []string{"a.jpg", "b.jpeg", "d.jpg"} {
		if !exists(filepath.Join(f.out, "unknown", name)) {
			t.Fatalf("%s should be copied into unknown", name)
		}
	}
	for _, d := range rec.decisions {
		if d.Strategy != types.StrategyNone {
			t.Fatalf("no strategy can win without references: %+v", d)
		}
	}
}

func TestRunMissingDirectory(t *testing.T) {
	f := newFixture(t)
	s := f.sorter(defaultTags(), Options{}, nil)
	s.options.ToSortDir = filepath.Join(f.toSort, "missing")

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// TestEndToEndFeatureMatching runs the real SIFT pipeline on generated images.
func TestEndToEndFeatureMatching(t *testing.T) {
	base := t.TempDir()
	known := filepath.Join(base, "known")
	toSort := filepath.Join(base, "to_sort")
	out := filepath.Join(base, "sorted")

	testsupport.WriteTexturedJPEG(t, filepath.Join(known, "cat.jpg"), 101)
	testsupport.WriteTexturedJPEG(t, filepath.Join(known, "dog.jpg"), 202)
	testsupport.WriteFile(t, filepath.Join(known, ".DS_Store"), []byte("junk"))

	testsupport.CopyFixture(t, filepath.Join(known, "cat.jpg"), filepath.Join(toSort, "cat_copy.jpg"))
	testsupport.CopyFixture(t, filepath.Join(known, "dog.jpg"), filepath.Join(toSort, "dog_copy.jpeg"))
	testsupport.WriteJPEG(t, filepath.Join(toSort, "blank.jpg"), testsupport.SolidImage(color.Gray{Y: 90}, 320, 240))
	testsupport.CopyFixture(t, filepath.Join(known, "cat.jpg"), filepath.Join(toSort, "cat.png"))
	// A re-encoded crop of the cat reference, as a second shot of the same subject would be.
	testsupport.WriteJPEGQuality(t, filepath.Join(toSort, "cat_crop.jpg"),
		testsupport.CenterCrop(testsupport.TexturedImage(101, 320, 240), 0.85), 70)

	extractor := imageprocessor.NewExtractor(imageprocessor.DefaultCropFactor)
	defer extractor.Close()

	cat, err := catalog.Build(catalog.BuildOptions{KnownDir: known, OutputDir: out}, extractor)
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	opts := Options{
		ToSortDir:     toSort,
		MinMatches:    2,
		DistanceRatio: imageprocessor.DefaultDistanceRatio,
		TieBreak:      TieLastWins,
	}

	var runs [2][]types.SortDecision
	for i := range runs {
		rec := &memoryRecorder{}
		if _, err := SortAll(context.Background(), cat, extractor, opts, rec); err != nil {
			t.Fatal(err)
		}
		runs[i] = rec.decisions
	}

	want := map[string]string{
		"blank.jpg":     types.UnknownLabel,
		"cat_copy.jpg":  "cat",
		"cat_crop.jpg":  "cat",
		"dog_copy.jpeg": "dog",
	}
	if len(runs[0]) != len(want) {
		t.Fatalf("recorded %d decisions, want %d", len(runs[0]), len(want))
	}
	for _, d := range runs[0] {
		if want[d.Filename] != d.Label {
			t.Fatalf("%s sorted to %s, want %s", d.Filename, d.Label, want[d.Filename])
		}
		if d.Label != types.UnknownLabel && d.BFScore <= opts.MinMatches {
			t.Fatalf("%s brute force score %d should exceed the floor", d.Filename, d.BFScore)
		}
		if d.Filename == "cat_crop.jpg" {
			if d.Strategy != types.StrategyBruteForce || d.Destination != filepath.Join(out, "cat") {
				t.Fatalf("cropped cat should be claimed by brute force for %s: %+v", filepath.Join(out, "cat"), d)
			}
			continue
		}
		if d.Label != types.UnknownLabel && d.HashDistance != 0 {
			t.Fatalf("%s duplicate should have hash distance 0, got %d", d.Filename, d.HashDistance)
		}
	}
	for i := range runs[0] {
		if runs[0][i].Label != runs[1][i].Label || runs[0][i].BFScore != runs[1][i].BFScore {
			t.Fatalf("run decisions differ: %+v vs %+v", runs[0][i], runs[1][i])
		}
	}

	for dst, src := range map[string]string{
		filepath.Join(out, "cat", "cat_copy.jpg"):  filepath.Join(toSort, "cat_copy.jpg"),
		filepath.Join(out, "dog", "dog_copy.jpeg"): filepath.Join(toSort, "dog_copy.jpeg"),
		filepath.Join(out, "cat", "cat_crop.jpg"):  filepath.Join(toSort, "cat_crop.jpg"),
		filepath.Join(out, "unknown", "blank.jpg"): filepath.Join(toSort, "blank.jpg"),
	} {
		if testsupport.SHA256File(t, dst) != testsupport.SHA256File(t, src) {
			t.Fatalf("%s is not a byte-exact copy", dst)
		}
	}
	if exists(filepath.Join(out, "cat", "cat.png")) {
		t.Fatal("png files must not be sorted")
	}
}
