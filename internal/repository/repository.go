// Package repository holds the backing-store operations of the content pipeline.
package repository

import (
	"context"
	"time"

	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

// ContentStore creates and reads tips, guides and their associations.
type ContentStore interface {
	CreateTip(ctx context.Context, tip *model.Tip) error
	CreateGuide(ctx context.Context, guide *model.Guide) error
	CreateAssociations(ctx context.Context, rows []model.Association) error

	GetTip(ctx context.Context, id model.TipID) (*model.Tip, error)
	GetGuide(ctx context.Context, id model.GuideID) (*model.Guide, error)
	ListGuideTips(ctx context.Context, id model.GuideID) ([]model.Tip, error)
	ListTips(ctx context.Context, author model.UserID, limit int) ([]model.Tip, error)
}

// AtomicGuideCreator is implemented by stores that can write a guide and its associations
// in one transaction.
type AtomicGuideCreator interface {
	CreateGuideWithTips(ctx context.Context, guide *model.Guide, tips []model.TipID) error
}

// EdgeStore persists engagement edges. Inserting an existing edge and deleting a missing
// one both succeed.
type EdgeStore interface {
	InsertEdge(ctx context.Context, e model.Edge) error
	DeleteEdge(ctx context.Context, e model.Edge) error
	EdgeExists(ctx context.Context, e model.Edge) (bool, error)
	CountEdges(ctx context.Context, kind model.EdgeKind, target string) (int, error)
}

type CommentStore interface {
	AddComment(ctx context.Context, tip model.TipID, author model.UserID, text string) (*model.Comment, error)
	ListComments(ctx context.Context, tip model.TipID) ([]model.Comment, error)
}

// Store is everything the pipeline needs from the backing store.
type Store interface {
	ContentStore
	EdgeStore
	CommentStore
}

// NotFoundError is returned by lookups that matched no row.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.ID
}

func NewTip(author model.UserID, status model.Status) *model.Tip {
	return &model.Tip{
		ID:        model.TipID(uuid.New().String()),
		Author:    author,
		Status:    status,
		Images:    []string{},
		CreatedAt: now(),
	}
}

func NewGuide(author model.UserID, status model.Status) *model.Guide {
	return &model.Guide{
		ID:        model.GuideID(uuid.New().String()),
		Author:    author,
		Status:    status,
		CreatedAt: now(),
	}
}

// Stored timestamps have second precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
