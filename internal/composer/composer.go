// Package composer implements the tip and guide composition flows on top of the draft store.
package composer

import (
	"fmt"

	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/upload"
	"github.com/rs/zerolog"
)

var composerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	composerLogger = l
}

// Image is a local file attached while editing.
type Image = upload.File

func pendingFiles(media []draft.Media) (files []upload.File, index []int) {
	for i, m := range media {
		if m.Pending == nil {
			continue
		}
		files = append(files, upload.File{Name: m.Pending.Name, ContentType: m.Pending.ContentType, Data: m.Pending.Data})
		index = append(index, i)
	}
	return files, index
}

func transitionError(op string, state fmt.Stringer) string {
	return fmt.Sprintf("cannot %s while %s", op, state)
}
