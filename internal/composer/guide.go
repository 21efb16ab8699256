package composer

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/upload"
)

type GuideState string

const (
	GuideEditing   GuideState = "editing"
	GuideAdvancing GuideState = "advancing"
)

func (s GuideState) String() string { return string(s) }

type GuideOptions struct {
	Author model.UserID
}

// GuideComposer collects the guide shell. Advancing hands control to the tip selection;
// the guide itself is created by the publisher.
type GuideComposer struct {
	store    *draft.Store
	repo     repository.ContentStore
	uploader *upload.Uploader
	opts     GuideOptions

	mu    sync.Mutex
	state GuideState
	draft *draft.Draft
}

func NewGuideComposer(store *draft.Store, repo repository.ContentStore, uploader *upload.Uploader, opts GuideOptions) *GuideComposer {
	d, ok := store.Load(draft.KindGuide)
	if !ok {
		d = draft.NewGuide()
	}
	return &GuideComposer{
		store:    store,
		repo:     repo,
		uploader: uploader,
		opts:     opts,
		state:    GuideEditing,
		draft:    d,
	}
}

func (c *GuideComposer) State() GuideState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *GuideComposer) Draft() *draft.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

func (c *GuideComposer) Progress() *upload.Progress {
	return c.uploader.Progress()
}

// mutate persists a changed copy of the draft. Editing is always possible: coming back from
// the selection step reopens the form. Callers hold mu.
func (c *GuideComposer) mutate(fn func(*draft.GuideDraft)) error {
	next := c.draft.Clone()
	fn(next.Guide)
	if err := c.store.Save(draft.KindGuide, next); err != nil {
		return errors.NewInternal(err)
	}
	c.draft = next
	c.state = GuideEditing
	return nil
}

func (c *GuideComposer) Edit(fn func(*draft.GuideDraft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mutate(func(g *draft.GuideDraft) {
		cover := g.Cover
		fn(g)
		g.Cover = cover
	})
}

// SetCover attaches a local cover image, replacing any previous one.
func (c *GuideComposer) SetCover(img Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mutate(func(g *draft.GuideDraft) {
		m := draft.PendingMedia(img.Name, img.ContentType, img.Data)
		g.Cover = &m
	})
}

func (c *GuideComposer) SetCoverURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mutate(func(g *draft.GuideDraft) {
		m := draft.URLMedia(url)
		g.Cover = &m
	})
}

func (c *GuideComposer) RemoveCover() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mutate(func(g *draft.GuideDraft) {
		g.Cover = nil
	})
}

// Advance validates the form, uploads a pending cover and writes the result back to the
// draft store. On success the flow continues in the tip selection.
func (c *GuideComposer) Advance(ctx context.Context) error {
	c.mu.Lock()
	if fields := ValidateGuide(c.draft.Guide); len(fields) > 0 {
		c.state = GuideEditing
		c.mu.Unlock()
		return errors.NewValidation(fields)
	}
	d := c.draft.Clone()
	uploaded := d.Guide.Cover
	c.mu.Unlock()

	if err := c.resolveCover(ctx, d); err != nil {
		c.mu.Lock()
		c.state = GuideEditing
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Edits made during the upload are kept; only the uploaded cover is carried over.
	next := c.draft.Clone()
	if !sameCover(next.Guide.Cover, uploaded) {
		c.state = GuideEditing
		return errors.NewPrecondition("the cover changed while uploading, advance again")
	}
	next.Guide.Cover = d.Guide.Cover
	if fields := ValidateGuide(next.Guide); len(fields) > 0 {
		c.state = GuideEditing
		return errors.NewValidation(fields)
	}

	if err := c.store.Save(draft.KindGuide, next); err != nil {
		c.state = GuideEditing
		return errors.NewInternal(err)
	}
	c.draft = next
	c.state = GuideAdvancing
	return nil
}

// sameCover reports whether a and b are the same cover, pending data included.
func sameCover(a, b *draft.Media) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.URL != b.URL || (a.Pending == nil) != (b.Pending == nil) {
		return false
	}
	if a.Pending == nil {
		return true
	}
	return a.Pending.Name == b.Pending.Name &&
		a.Pending.ContentType == b.Pending.ContentType &&
		bytes.Equal(a.Pending.Data, b.Pending.Data)
}

// SaveAsDraft creates the guide with status draft and no tips, skipping the selection step.
func (c *GuideComposer) SaveAsDraft(ctx context.Context) (*model.Guide, error) {
	c.mu.Lock()
	if fields := ValidateDraftSave(c.draft.Guide.Title, c.draft.Guide.Description); len(fields) > 0 {
		c.mu.Unlock()
		return nil, errors.NewValidation(fields)
	}
	d := c.draft.Clone()
	c.mu.Unlock()

	if err := c.resolveCover(ctx, d); err != nil {
		return nil, err
	}

	guide := GuideFromDraft(d.Guide, c.opts.Author, model.StatusDraft)
	if err := c.repo.CreateGuide(ctx, guide); err != nil {
		composerLogger.Error().Err(err).Msg("Guide draft creation failed")
		c.mu.Lock()
		c.draft = d
		c.mu.Unlock()
		if err := c.store.Save(draft.KindGuide, d); err != nil {
			composerLogger.Warn().Err(err).Msg("Could not persist uploaded cover")
		}
		return nil, errors.NewCreateFailed("guide", err)
	}

	if err := c.store.Clear(draft.KindGuide); err != nil {
		composerLogger.Warn().Err(err).Msg("Could not clear guide draft")
	}
	if err := c.store.ClearSelection(); err != nil {
		composerLogger.Warn().Err(err).Msg("Could not clear guide selection")
	}

	composerLogger.Info().Str("guide_id", string(guide.ID)).Msg("Guide saved as draft")

	c.mu.Lock()
	c.draft = draft.NewGuide()
	c.state = GuideEditing
	c.mu.Unlock()
	return guide, nil
}

func (c *GuideComposer) resolveCover(ctx context.Context, d *draft.Draft) error {
	cover := d.Guide.Cover
	if cover == nil || cover.Pending == nil {
		return nil
	}

	url, err := c.uploader.Upload(ctx, model.BucketGuides, upload.File{
		Name:        cover.Pending.Name,
		ContentType: cover.Pending.ContentType,
		Data:        cover.Pending.Data,
	})
	if err != nil {
		return errors.NewUploadFailed(err, nil)
	}

	resolved := draft.URLMedia(url)
	d.Guide.Cover = &resolved
	return nil
}

// Reload drops in-memory state and reads the draft back from the store, which the publisher
// clears after a successful publish.
func (c *GuideComposer) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.store.Load(draft.KindGuide)
	if !ok {
		d = draft.NewGuide()
	}
	c.draft = d
	c.state = GuideEditing
}

// Discard abandons the guide flow: the draft, the selection and any handed-over tip.
func (c *GuideComposer) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = draft.NewGuide()
	c.state = GuideEditing

	if err := c.store.Clear(draft.KindGuide); err != nil {
		return err
	}
	if err := c.store.ClearSelection(); err != nil {
		return err
	}
	return c.store.ClearHandoff()
}

// GuideFromDraft builds the guide row for a draft.
func GuideFromDraft(g *draft.GuideDraft, author model.UserID, status model.Status) *model.Guide {
	guide := repository.NewGuide(author, status)
	guide.Title = strings.TrimSpace(g.Title)
	guide.Description = strings.TrimSpace(g.Description)
	guide.City = strings.TrimSpace(g.City)
	guide.Category = g.Category
	if g.Cover != nil {
		guide.CoverURL = g.Cover.URL
	}
	return guide
}
