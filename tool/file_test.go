package tool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsSupportedBookFormat(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"book.epub", true},
		{"Book.PDF", true},
		{"archive.cbz", true},
		{"notes.djvu", true},
		{"photo.jpg", false},
		{"binary.exe", false},
		{"noextension", false},
		{"weird.epub.png", false},
	}
	for _, tc := range cases {
		if got := IsSupportedBookFormat(tc.name); got != tc.want {
			t.Errorf("IsSupportedBookFormat(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStatRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.epub")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	name, size, err := StatRegularFile(path)
	if err != nil {
		t.Fatalf("StatRegularFile: %v", err)
	}
	if name != "sample.epub" {
		t.Errorf("name = %q, want %q", name, "sample.epub")
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}

	if _, _, err := StatRegularFile(dir); err == nil {
		t.Error("expected error for directory path")
	}
	if _, _, err := StatRegularFile(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
