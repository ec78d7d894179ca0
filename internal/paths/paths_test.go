package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsure_CreatesMissing(t *testing.T) {
	root := t.TempDir()
	images := filepath.Join(root, "images")
	logs := filepath.Join(root, "var", "logs")

	if err := Ensure(images, logs); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{images, logs} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestEnsure_ExistingIsNoop(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "keep.jpg")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Ensure(dir); err != nil {
		t.Fatalf("Ensure on existing dir: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("existing content should be untouched: %v", err)
	}
}

func TestEnsure_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images")
	if err := os.WriteFile(path, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Ensure(path); err == nil {
		t.Error("expected error when a file occupies the path, got nil")
	}
}

func TestEnsure_EmptyIgnored(t *testing.T) {
	if err := Ensure(""); err != nil {
		t.Errorf("empty path should be ignored, got: %v", err)
	}
}
