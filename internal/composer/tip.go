package composer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/render"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/upload"
)

type TipState string

const (
	TipEditing       TipState = "editing"
	TipValidating    TipState = "validating"
	TipPreview       TipState = "preview"
	TipUploading     TipState = "uploading"
	TipPublishing    TipState = "publishing"
	TipPublished     TipState = "published"
	TipPublishFailed TipState = "publish_failed"
)

func (s TipState) String() string { return string(s) }

type TipOptions struct {
	Author    model.UserID
	MaxImages int
	// ForGuide hands the published tip over to the guide selection instead of finishing.
	ForGuide bool
}

// TipComposer drives one tip from first edit to a published row. Every edit is written to
// the draft store, so a new composer over the same store resumes where the last one stopped.
type TipComposer struct {
	store    *draft.Store
	repo     repository.ContentStore
	uploader *upload.Uploader
	opts     TipOptions

	mu     sync.Mutex
	state  TipState
	draft  *draft.Draft
	result *model.Tip
}

func NewTipComposer(store *draft.Store, repo repository.ContentStore, uploader *upload.Uploader, opts TipOptions) *TipComposer {
	if opts.MaxImages <= 0 {
		opts.MaxImages = 10
	}

	d, ok := store.Load(draft.KindTip)
	if !ok {
		d = draft.NewTip()
	}

	return &TipComposer{
		store:    store,
		repo:     repo,
		uploader: uploader,
		opts:     opts,
		state:    TipEditing,
		draft:    d,
	}
}

func (c *TipComposer) State() TipState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the draft being edited.
func (c *TipComposer) Draft() *draft.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Result is the tip created by the last successful publish or save.
func (c *TipComposer) Result() *model.Tip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// SetForGuide switches the guide hand-off on or off for the next publish.
func (c *TipComposer) SetForGuide(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.ForGuide = on
}

func (c *TipComposer) Progress() *upload.Progress {
	return c.uploader.Progress()
}

// editable reports whether fields may change. A failed publish returns to editing on the
// next edit. Callers hold mu.
func (c *TipComposer) editable(op string) error {
	switch c.state {
	case TipEditing, TipPublishFailed, TipPublished:
		c.state = TipEditing
		return nil
	}
	return errors.NewPrecondition(transitionError(op, c.state))
}

// mutate applies fn to a copy of the draft and persists it. Callers hold mu.
func (c *TipComposer) mutate(fn func(*draft.TipDraft) error) error {
	next := c.draft.Clone()
	if err := fn(next.Tip); err != nil {
		return err
	}
	if err := c.store.Save(draft.KindTip, next); err != nil {
		return errors.NewInternal(fmt.Errorf("error saving draft: %w", err))
	}
	c.draft = next
	return nil
}

// Edit changes form fields. Media are managed with AddImage and RemoveImage.
func (c *TipComposer) Edit(fn func(*draft.TipDraft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable("edit"); err != nil {
		return err
	}
	return c.mutate(func(t *draft.TipDraft) error {
		media := t.Media
		fn(t)
		t.Media = media
		return nil
	})
}

func (c *TipComposer) AddImage(img Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable("add an image"); err != nil {
		return err
	}
	return c.mutate(func(t *draft.TipDraft) error {
		if len(t.Media) >= c.opts.MaxImages {
			return errors.NewValidation(map[string]string{
				FieldImages: fmt.Sprintf("at most %d images per tip", c.opts.MaxImages),
			})
		}
		t.Media = append(t.Media, draft.PendingMedia(img.Name, img.ContentType, img.Data))
		return nil
	})
}

func (c *TipComposer) RemoveImage(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable("remove an image"); err != nil {
		return err
	}
	return c.mutate(func(t *draft.TipDraft) error {
		if i < 0 || i >= len(t.Media) {
			return errors.NewInvalidRequest(fmt.Sprintf("no image at position %d", i))
		}
		t.Media = append(t.Media[:i], t.Media[i+1:]...)
		return nil
	})
}

// Submit validates the draft and moves to the preview step. Invalid drafts stay in editing.
func (c *TipComposer) Submit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable("submit"); err != nil {
		return err
	}

	c.state = TipValidating
	if fields := ValidateTip(c.draft.Tip); len(fields) > 0 {
		c.state = TipEditing
		return errors.NewValidation(fields)
	}

	c.state = TipPreview
	return nil
}

// Back leaves the preview step without publishing.
func (c *TipComposer) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != TipPreview {
		return errors.NewPrecondition(transitionError("go back", c.state))
	}
	c.state = TipEditing
	return nil
}

func (c *TipComposer) Preview() (render.Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != TipPreview {
		return render.Preview{}, errors.NewPrecondition(transitionError("preview", c.state))
	}
	return render.NewPreview(c.draft), nil
}

// Publish uploads pending images and creates the tip. It is allowed from the preview step
// and, as a retry, after a failed creation.
func (c *TipComposer) Publish(ctx context.Context) (*model.Tip, error) {
	c.mu.Lock()
	if c.state != TipPreview && c.state != TipPublishFailed {
		err := errors.NewPrecondition(transitionError("publish", c.state))
		c.mu.Unlock()
		return nil, err
	}
	d := c.begin()
	c.mu.Unlock()

	return c.run(ctx, d, model.StatusPublished)
}

// SaveAsDraft creates the tip with status draft. Only title and description are required.
func (c *TipComposer) SaveAsDraft(ctx context.Context) (*model.Tip, error) {
	c.mu.Lock()
	if err := c.editable("save as draft"); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if fields := ValidateDraftSave(c.draft.Tip.Title, c.draft.Tip.Description); len(fields) > 0 {
		c.mu.Unlock()
		return nil, errors.NewValidation(fields)
	}
	d := c.begin()
	c.mu.Unlock()

	return c.run(ctx, d, model.StatusDraft)
}

// begin claims the composer for an upload. Callers hold mu.
func (c *TipComposer) begin() *draft.Draft {
	c.state = TipUploading
	return c.draft.Clone()
}

func (c *TipComposer) run(ctx context.Context, d *draft.Draft, status model.Status) (*model.Tip, error) {
	if err := c.resolveMedia(ctx, d); err != nil {
		c.setState(TipEditing)
		return nil, err
	}

	c.mu.Lock()
	c.draft = d
	c.state = TipPublishing
	c.mu.Unlock()

	urls, _ := d.Tip.URLs()
	tip := repository.NewTip(c.opts.Author, status)
	tip.Title = strings.TrimSpace(d.Tip.Title)
	tip.Description = strings.TrimSpace(d.Tip.Description)
	tip.Location = strings.TrimSpace(d.Tip.Location)
	tip.Category = d.Tip.Category
	tip.Images = urls

	if err := c.repo.CreateTip(ctx, tip); err != nil {
		composerLogger.Error().Err(err).Str("status", string(status)).Msg("Tip creation failed")
		c.setState(TipPublishFailed)
		return nil, errors.NewCreateFailed("tip", err)
	}

	if err := c.store.Clear(draft.KindTip); err != nil {
		composerLogger.Warn().Err(err).Msg("Could not clear tip draft")
	}
	c.mu.Lock()
	forGuide := c.opts.ForGuide
	c.mu.Unlock()
	if forGuide && status == model.StatusPublished {
		if err := c.store.SaveHandoff(tip.ID); err != nil {
			composerLogger.Warn().Err(err).Str("tip_id", string(tip.ID)).Msg("Could not hand tip over to the guide")
		}
	}

	composerLogger.Info().Str("tip_id", string(tip.ID)).Str("status", string(status)).Msg("Tip created")

	c.mu.Lock()
	c.state = TipPublished
	c.result = tip
	c.draft = draft.NewTip()
	c.mu.Unlock()
	return tip, nil
}

// resolveMedia uploads pending media and, on success, persists the URLs in their place so a
// retry does not upload them again. On failure the stored draft is left as it was.
func (c *TipComposer) resolveMedia(ctx context.Context, d *draft.Draft) error {
	files, index := pendingFiles(d.Tip.Media)
	if len(files) == 0 {
		return nil
	}

	urls, err := c.uploader.UploadMany(ctx, model.BucketTips, files)
	if err != nil {
		return errors.NewUploadFailed(err, urls)
	}

	for i, url := range urls {
		d.Tip.Media[index[i]] = draft.URLMedia(url)
	}
	if err := c.store.Save(draft.KindTip, d); err != nil {
		composerLogger.Warn().Err(err).Msg("Could not persist uploaded media")
	}
	return nil
}

func (c *TipComposer) setState(s TipState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Discard drops the stored tip draft. The next edit starts a new composition.
func (c *TipComposer) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable("discard"); err != nil {
		return err
	}
	c.draft = draft.NewTip()
	c.result = nil
	return c.store.Clear(draft.KindTip)
}
