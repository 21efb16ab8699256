// Package model defines the published entities of the content pipeline and their identifiers.
package model

import "time"

type UserID string

type TipID string

type GuideID string

type CommentID string

type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

type Tip struct {
	ID          TipID     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Location    string    `json:"location"`
	Images      []string  `json:"images"`
	Author      UserID    `json:"author"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Guide struct {
	ID          GuideID   `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	Category    Category  `json:"category"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Author      UserID    `json:"author"`
	Likes       int       `json:"likes"`
	Saves       int       `json:"saves"`
	Shares      int       `json:"shares"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Association places a tip inside a guide. Ordinals are 1-based and dense.
type Association struct {
	GuideID GuideID `json:"guide_id"`
	TipID   TipID   `json:"tip_id"`
	Ordinal int     `json:"ordinal"`
}

// Associations builds the association rows for tips in display order.
func Associations(guide GuideID, tips []TipID) []Association {
	out := make([]Association, len(tips))
	for i, id := range tips {
		out[i] = Association{GuideID: guide, TipID: id, Ordinal: i + 1}
	}
	return out
}

type Comment struct {
	ID        CommentID `json:"id"`
	TipID     TipID     `json:"tip_id"`
	Author    UserID    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
