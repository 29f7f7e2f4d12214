package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsIgnoredName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{".DS_Store", true},
		{"Thumbs.db", true},
		{"._cat.jpg", true},
		{".hidden", true},
		{"cat.jpg", false},
		{"dog.png", false},
	}
	for _, tt := range tests {
		if got := IsIgnoredName(tt.name); got != tt.want {
			t.Errorf("IsIgnoredName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLabelFromFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"cat.jpg":          "cat",
		"known/dog.png":    "dog",
		"my.fav.bird.jpeg": "my.fav.bird",
		"noext":            "noext",
	}
	for in, want := range tests {
		if got := LabelFromFilename(in); got != want {
			t.Errorf("LabelFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sorted", "cat")
	for i := 0; i < 2; i++ {
		if err := EnsureDir(dir); err != nil {
			t.Fatal(err)
		}
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", dir, err)
	}
}

func TestParseRatio(t *testing.T) {
	t.Parallel()

	if r, err := ParseRatio("0.75"); err != nil || r != 0.75 {
		t.Fatalf("ParseRatio(0.75) = %v, %v", r, err)
	}
	for _, bad := range []string{"0", "1.2", "abc", "-0.5"} {
		if _, err := ParseRatio(bad); err == nil {
			t.Errorf("ParseRatio(%q) should fail", bad)
		}
	}
}
