package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/roteiro/internal/db"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/google/uuid"
)

type DBRepository struct { // implements Store and AtomicGuideCreator
	db db.DB
}

func NewDBRepository(db db.DB) *DBRepository {
	return &DBRepository{db: db}
}

const (
	insertTip = `INSERT INTO tips (id, title, description, category, location, images, author_id, comments, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertGuide = `INSERT INTO guides (id, title, description, city, category, cover_url, author_id, shares, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertAssociation = `INSERT INTO guide_tips (guide_id, tip_id, ordinal) VALUES (?, ?, ?)`

	selectTip = `SELECT id, title, description, category, location, images, author_id, comments, status, created_at,
    (SELECT COUNT(*) FROM engagement_edges e WHERE e.kind = 'like' AND e.target_id = tips.id)
FROM tips`
	selectGuide = `SELECT id, title, description, city, category, cover_url, author_id, shares, status, created_at,
    (SELECT COUNT(*) FROM engagement_edges e WHERE e.kind = 'like' AND e.target_id = guides.id),
    (SELECT COUNT(*) FROM engagement_edges e WHERE e.kind = 'save' AND e.target_id = guides.id)
FROM guides`
)

func (r *DBRepository) CreateTip(ctx context.Context, tip *model.Tip) error {
	images, err := json.Marshal(nonNil(tip.Images))
	if err != nil {
		return fmt.Errorf("error encoding images: %w", err)
	}

	_, err = r.db.Exec(ctx, insertTip,
		tip.ID, tip.Title, tip.Description, tip.Category, tip.Location, string(images),
		tip.Author, tip.Comments, tip.Status, tip.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("error saving tip: %w", err)
	}

	repoLogger.Debug().Str("tip_id", string(tip.ID)).Str("status", string(tip.Status)).Msg("Tip saved")
	return nil
}

func (r *DBRepository) CreateGuide(ctx context.Context, guide *model.Guide) error {
	_, err := r.db.Exec(ctx, insertGuide, guideArgs(guide)...)
	if err != nil {
		return fmt.Errorf("error saving guide: %w", err)
	}

	repoLogger.Debug().Str("guide_id", string(guide.ID)).Str("status", string(guide.Status)).Msg("Guide saved")
	return nil
}

// CreateAssociations inserts rows in order outside any transaction. The first failure stops
// the batch and earlier rows stay written.
func (r *DBRepository) CreateAssociations(ctx context.Context, rows []model.Association) error {
	for _, a := range rows {
		if _, err := r.db.Exec(ctx, insertAssociation, a.GuideID, a.TipID, a.Ordinal); err != nil {
			return fmt.Errorf("error saving association %s/%s: %w", a.GuideID, a.TipID, err)
		}
	}
	return nil
}

func (r *DBRepository) CreateGuideWithTips(ctx context.Context, guide *model.Guide, tips []model.TipID) error {
	return r.db.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, insertGuide, guideArgs(guide)...); err != nil {
			return fmt.Errorf("error saving guide: %w", err)
		}
		for _, a := range model.Associations(guide.ID, tips) {
			if _, err := tx.Exec(ctx, insertAssociation, a.GuideID, a.TipID, a.Ordinal); err != nil {
				return fmt.Errorf("error saving association %s/%s: %w", a.GuideID, a.TipID, err)
			}
		}
		return nil
	})
}

func guideArgs(g *model.Guide) []any {
	return []any{
		g.ID, g.Title, g.Description, g.City, g.Category, g.CoverURL,
		g.Author, g.Shares, g.Status, g.CreatedAt.Unix(),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTip(row scanner) (*model.Tip, error) {
	var (
		tip     model.Tip
		images  string
		created int64
	)
	err := row.Scan(&tip.ID, &tip.Title, &tip.Description, &tip.Category, &tip.Location, &images,
		&tip.Author, &tip.Comments, &tip.Status, &created, &tip.Likes)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &tip.Images); err != nil {
		return nil, fmt.Errorf("error decoding images of tip %s: %w", tip.ID, err)
	}
	tip.CreatedAt = time.Unix(created, 0).UTC()
	return &tip, nil
}

func (r *DBRepository) GetTip(ctx context.Context, id model.TipID) (*model.Tip, error) {
	tip, err := scanTip(r.db.QueryRow(ctx, selectTip+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "tip", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading tip: %w", err)
	}
	return tip, nil
}

func (r *DBRepository) GetGuide(ctx context.Context, id model.GuideID) (*model.Guide, error) {
	var (
		g       model.Guide
		created int64
	)
	err := r.db.QueryRow(ctx, selectGuide+` WHERE id = ?`, id).Scan(
		&g.ID, &g.Title, &g.Description, &g.City, &g.Category, &g.CoverURL,
		&g.Author, &g.Shares, &g.Status, &created, &g.Likes, &g.Saves,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "guide", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading guide: %w", err)
	}
	g.CreatedAt = time.Unix(created, 0).UTC()
	return &g, nil
}

func (r *DBRepository) ListGuideTips(ctx context.Context, id model.GuideID) ([]model.Tip, error) {
	rows, err := r.db.Query(ctx, selectTip+`
JOIN guide_tips gt ON gt.tip_id = tips.id
WHERE gt.guide_id = ?
ORDER BY gt.ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("error querying guide tips: %w", err)
	}
	return collectTips(rows)
}

// ListTips returns the author's tips, newest first. An empty author lists every tip.
func (r *DBRepository) ListTips(ctx context.Context, author model.UserID, limit int) ([]model.Tip, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if author == "" {
		rows, err = r.db.Query(ctx, selectTip+` ORDER BY created_at DESC, id LIMIT ?`, limit)
	} else {
		rows, err = r.db.Query(ctx, selectTip+` WHERE author_id = ? ORDER BY created_at DESC, id LIMIT ?`, author, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying tips: %w", err)
	}
	return collectTips(rows)
}

func collectTips(rows *sql.Rows) ([]model.Tip, error) {
	defer rows.Close()

	tips := make([]model.Tip, 0)
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning tip: %w", err)
		}
		tips = append(tips, *tip)
	}
	return tips, rows.Err()
}

func (r *DBRepository) InsertEdge(ctx context.Context, e model.Edge) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO engagement_edges (kind, actor_id, target_id, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, actor_id, target_id) DO NOTHING`,
		e.Kind, e.Actor, e.Target, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("error inserting %s edge: %w", e.Kind, err)
	}
	return nil
}

func (r *DBRepository) DeleteEdge(ctx context.Context, e model.Edge) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM engagement_edges WHERE kind = ? AND actor_id = ? AND target_id = ?`,
		e.Kind, e.Actor, e.Target)
	if err != nil {
		return fmt.Errorf("error deleting %s edge: %w", e.Kind, err)
	}
	return nil
}

func (r *DBRepository) EdgeExists(ctx context.Context, e model.Edge) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM engagement_edges WHERE kind = ? AND actor_id = ? AND target_id = ?`,
		e.Kind, e.Actor, e.Target).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error reading %s edge: %w", e.Kind, err)
	}
	return n > 0, nil
}

func (r *DBRepository) CountEdges(ctx context.Context, kind model.EdgeKind, target string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM engagement_edges WHERE kind = ? AND target_id = ?`, kind, target).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting %s edges: %w", kind, err)
	}
	return n, nil
}

// AddComment stores the comment and bumps the tip's counter in one transaction.
func (r *DBRepository) AddComment(ctx context.Context, tip model.TipID, author model.UserID, text string) (*model.Comment, error) {
	c := &model.Comment{
		ID:        model.CommentID(uuid.New().String()),
		TipID:     tip,
		Author:    author,
		Text:      text,
		CreatedAt: now(),
	}

	err := r.db.WithTx(ctx, func(tx *db.Tx) error {
		res, err := tx.Exec(ctx, `UPDATE tips SET comments = comments + 1 WHERE id = ?`, tip)
		if err != nil {
			return fmt.Errorf("error updating comment count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &NotFoundError{Entity: "tip", ID: string(tip)}
		}

		_, err = tx.Exec(ctx, `INSERT INTO comments (id, tip_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.TipID, c.Author, c.Text, c.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("error saving comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *DBRepository) ListComments(ctx context.Context, tip model.TipID) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tip_id, author_id, body, created_at FROM comments WHERE tip_id = ? ORDER BY created_at, id`, tip)
	if err != nil {
		return nil, fmt.Errorf("error querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var (
			c       model.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.TipID, &c.Author, &c.Text, &created); err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
