package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/roteiro/internal/util/compression"
)

// FS keeps one compressed file per key under a directory, so values survive restarts.
type FS struct { // implements Medium
	dir        string
	compressor compression.Compressor
}

func NewFS(dir string, compressor compression.Compressor) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating scratch dir: %w", err)
	}
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &FS{dir: dir, compressor: compressor}, nil
}

func (f *FS) path(key string) string {
	return filepath.Join(f.dir, strings.ReplaceAll(key, "/", "__")+".bin")
}

func (f *FS) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", key, err)
	}

	value, err := f.compressor.Decompress(data)
	if err != nil {
		return nil, false, fmt.Errorf("error decompressing %s: %w", key, err)
	}
	return value, true, nil
}

// Put replaces the value atomically: readers see the old or the new file, never a torn one.
func (f *FS) Put(key string, value []byte) error {
	compressed, err := f.compressor.Compress(value)
	if err != nil {
		return fmt.Errorf("error compressing %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	return nil
}

func (f *FS) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error deleting %s: %w", key, err)
	}
	return nil
}
