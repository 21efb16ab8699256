package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/roteiro/internal/model"
)

// FSStorage writes objects under dir/<bucket>/<name>. The API serves dir at /media/.
type FSStorage struct { // implements Storage
	dir           string
	publicBaseURL string
}

func NewFSStorage(dir, publicBaseURL string) (*FSStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating media dir: %w", err)
	}
	return &FSStorage{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *FSStorage) Dir() string {
	return s.dir
}

func (s *FSStorage) Put(ctx context.Context, bucket model.Bucket, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.ContainsAny(name, `/\`) || name == "" {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	dir := filepath.Join(s.dir, string(bucket))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating bucket dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("error writing object: %w", err)
	}

	return s.publicBaseURL + "/" + string(bucket) + "/" + name, nil
}
