package draft

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/debemdeboas/roteiro/internal/model"
)

// document is the TOML shape of an importable draft.
type document struct {
	Kind        string   `toml:"kind"`
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Location    string   `toml:"location"`
	City        string   `toml:"city"`
	Category    string   `toml:"category"`
	Images      []string `toml:"images"`
	Cover       string   `toml:"cover"`
}

// ImportTOML reads a draft from a TOML file. Image entries that are URLs stay resolved; local
// paths, relative to the file, are loaded as pending media.
func ImportTOML(path string) (*Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeTOML(f, filepath.Dir(path))
}

func DecodeTOML(r io.Reader, baseDir string) (*Draft, error) {
	var doc document
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown draft fields: %v", undecoded)
	}

	kind, err := ParseKind(strings.ToLower(strings.TrimSpace(doc.Kind)))
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindGuide:
		d := NewGuide()
		d.Guide.Title = doc.Title
		d.Guide.Description = doc.Description
		d.Guide.City = doc.City
		d.Guide.Category = model.Category(doc.Category)
		if doc.Cover != "" {
			m, err := loadMedia(doc.Cover, baseDir)
			if err != nil {
				return nil, err
			}
			d.Guide.Cover = &m
		}
		return d, nil

	default:
		d := NewTip()
		d.Tip.Title = doc.Title
		d.Tip.Description = doc.Description
		d.Tip.Location = doc.Location
		d.Tip.Category = model.Category(doc.Category)
		for _, ref := range doc.Images {
			m, err := loadMedia(ref, baseDir)
			if err != nil {
				return nil, err
			}
			d.Tip.Media = append(d.Tip.Media, m)
		}
		return d, nil
	}
}

func loadMedia(ref, baseDir string) (Media, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return URLMedia(ref), nil
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Media{}, fmt.Errorf("error reading image %s: %w", ref, err)
	}
	return PendingMedia(filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), data), nil
}
