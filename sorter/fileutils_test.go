package sorter

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileByteExact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")

	content := make([]byte, 70*1024)
	for i := range content {
		content[i] = byte(i * 31)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	n, digest, err := CopyFile(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(content)) {
		t.Fatalf("copied %d bytes, want %d", n, len(content))
	}
	sum := sha256.Sum256(content)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest mismatch")
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatal("content mismatch")
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := CopyFile(filepath.Join(dir, "missing.jpg"), filepath.Join(dir, "out.jpg")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestHashFileMatchesCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	if err := os.WriteFile(src, []byte("hash me"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, digest, err := HashFile(src)
	if err != nil {
		t.Fatal(err)
	}
	_, copyDigest, err := CopyFile(src, filepath.Join(dir, "dst.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 || digest != copyDigest {
		t.Fatalf("HashFile = %d/%s, copy digest %s", n, digest, copyDigest)
	}
}
