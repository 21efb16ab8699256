// Package upload sends local images to object storage and reports coarse progress.
package upload

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var uploadLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	uploadLogger = l
}

// Storage puts bytes under bucket/name and returns the public URL.
type Storage interface {
	Put(ctx context.Context, bucket model.Bucket, name string, data []byte, contentType string) (string, error)
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader runs uploads one file at a time. Separate flows should use separate uploaders so
// their progress values do not interleave.
type Uploader struct {
	storage  Storage
	progress *Progress

	idMu    sync.Mutex
	entropy io.Reader
}

func New(storage Storage) *Uploader {
	return &Uploader{
		storage:  storage,
		progress: NewProgress(),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (u *Uploader) Progress() *Progress {
	return u.progress
}

// Upload stores one file and returns its URL.
func (u *Uploader) Upload(ctx context.Context, bucket model.Bucket, f File) (string, error) {
	urls, err := u.UploadMany(ctx, bucket, []File{f})
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

// UploadMany stores files in order and stops at the first failure, returning the URLs
// stored so far with the error. Stored files are never removed.
func (u *Uploader) UploadMany(ctx context.Context, bucket model.Bucket, files []File) ([]string, error) {
	u.progress.Set(0)

	urls := make([]string, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return urls, err
		}

		name := u.objectName(f.Name)
		start := time.Now()
		url, err := u.storage.Put(ctx, bucket, name, f.Data, contentType(f))
		if err != nil {
			uploadLogger.Error().Err(err).
				Str("bucket", string(bucket)).
				Str("file", f.Name).
				Int("index", i).
				Msg("Upload failed")
			return urls, fmt.Errorf("error uploading %s: %w", f.Name, err)
		}

		urls = append(urls, url)
		u.progress.Set(100 * (i + 1) / len(files))

		uploadLogger.Debug().
			Str("bucket", string(bucket)).
			Str("object", name).
			Int("bytes", len(f.Data)).
			Dur("took", time.Since(start)).
			Msg("Uploaded")
	}
	return urls, nil
}

// objectName is `<ULID>.<ext>`, unique and sortable by upload time.
func (u *Uploader) objectName(original string) string {
	u.idMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), u.entropy)
	u.idMu.Unlock()

	return strings.ToLower(id.String()) + "." + extension(original)
}

// imageTypes are the extensions stored objects may carry. Anything else is stored as jpg.
var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

func extension(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if _, ok := imageTypes[ext]; !ok {
		return "jpg"
	}
	return ext
}

// contentType trusts the client's type only for raster images.
func contentType(f File) string {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "image/svg") {
		return ct
	}
	return imageTypes[extension(f.Name)]
}
