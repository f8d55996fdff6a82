package ps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPS(t *testing.T) {
	m, err := MemoryStatus()
	if err != nil {
		t.Fatal(err)
	}
	if m.Total == 0 {
		t.Error("total memory reported as zero")
	}

	rss, err := ProcessRSS()
	if err != nil {
		t.Fatal(err)
	}
	if rss == 0 {
		t.Error("process rss reported as zero")
	}
}

func TestDirDiskUsage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), make([]byte, 100), 0660); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.jpg"), make([]byte, 23), 0660); err != nil {
		t.Fatal(err)
	}

	size, err := DirDiskUsage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if size != 123 {
		t.Fatalf("got %d, want 123", size)
	}

	d, err := DiskUsage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if d.Total == 0 {
		t.Error("disk total reported as zero")
	}
}
