package scratch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/debemdeboas/roteiro/internal/util/compression"
)

func media(t *testing.T) map[string]Medium {
	t.Helper()
	fsZstd, err := NewFS(t.TempDir(), compression.ZstdCompressor{})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	fsGzip, err := NewFS(t.TempDir(), compression.GzipCompressor{})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return map[string]Medium{
		"memory":  NewMemory(),
		"fs-zstd": fsZstd,
		"fs-gzip": fsGzip,
	}
}

func TestMedium(t *testing.T) {
	for name, m := range media(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := m.Get("draft/tip"); ok || err != nil {
				t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := m.Put("draft/tip", []byte(`{"kind":"tip"}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok, err := m.Get("draft/tip")
			if err != nil || !ok || !bytes.Equal(got, []byte(`{"kind":"tip"}`)) {
				t.Fatalf("Get after Put = %q, %v, %v", got, ok, err)
			}

			if err := m.Put("draft/tip", []byte(`{"kind":"tip","v":2}`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, _, _ = m.Get("draft/tip")
			if !bytes.Equal(got, []byte(`{"kind":"tip","v":2}`)) {
				t.Errorf("Expected overwrite, got %q", got)
			}

			if err := m.Delete("draft/tip"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := m.Delete("draft/tip"); err != nil {
				t.Errorf("Deleting a missing key should succeed: %v", err)
			}
			if _, ok, _ := m.Get("draft/tip"); ok {
				t.Error("Expected key to be gone")
			}
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	value := []byte("abc")
	_ = m.Put("k", value)
	value[0] = 'x'

	got, _, _ := m.Get("k")
	if string(got) != "abc" {
		t.Errorf("Stored value was aliased: %q", got)
	}
}

func TestFSSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Put("guide/selection", []byte(`["t1","t2"]`)); err != nil {
		t.Fatal(err)
	}

	second, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := second.Get("guide/selection")
	if err != nil || !ok || string(got) != `["t1","t2"]` {
		t.Errorf("Reopened medium returned %q, %v, %v", got, ok, err)
	}
}

func TestFSCorruptFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "draft__tip.bin"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.Get("draft/tip"); err == nil {
		t.Error("Expected an error for a corrupt file")
	}
}
