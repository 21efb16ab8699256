// Package publish turns the stored guide draft and tip selection into a published guide.
package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/rs/zerolog"
)

var publishLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	publishLogger = l
}

type Options struct {
	// Transactional writes the guide and its associations together when the store supports it.
	Transactional bool
}

type Publisher struct {
	repo   repository.ContentStore
	drafts *draft.Store
	author model.UserID
	opts   Options

	mu   sync.Mutex
	busy bool
}

func New(repo repository.ContentStore, drafts *draft.Store, author model.UserID, opts Options) *Publisher {
	return &Publisher{repo: repo, drafts: drafts, author: author, opts: opts}
}

// Publish creates the guide and one association per selected tip, ordinals following the
// selection order. The draft and the selection are read from the store on every call and
// are cleared only after everything was written.
func (p *Publisher) Publish(ctx context.Context) (*model.Guide, error) {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return nil, errors.NewPrecondition("a guide is already being published")
	}
	p.busy = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	d, selection, err := p.load()
	if err != nil {
		return nil, err
	}

	guide := composer.GuideFromDraft(d.Guide, p.author, model.StatusPublished)
	log := publishLogger.With().Str("guide_id", string(guide.ID)).Int("tips", len(selection)).Logger()

	if atomic, ok := p.repo.(repository.AtomicGuideCreator); ok && p.opts.Transactional {
		if err := atomic.CreateGuideWithTips(ctx, guide, selection); err != nil {
			log.Error().Err(err).Msg("Guide publish rolled back")
			return nil, errors.NewCreateFailed("guide", err)
		}
	} else {
		if err := p.repo.CreateGuide(ctx, guide); err != nil {
			log.Error().Err(err).Msg("Guide creation failed")
			return nil, errors.NewCreateFailed("guide", err)
		}
		if err := p.repo.CreateAssociations(ctx, model.Associations(guide.ID, selection)); err != nil {
			log.Error().Err(err).Msg("Guide created without its tips")
			return nil, errors.NewPartialPublish(string(guide.ID), err)
		}
	}

	p.finish()
	log.Info().Msg("Guide published")
	return guide, nil
}

func (p *Publisher) load() (*draft.Draft, []model.TipID, error) {
	d, ok := p.drafts.Load(draft.KindGuide)
	if !ok {
		return nil, nil, errors.NewPrecondition(fmt.Sprintf(config.ErrNoDraftFmt, draft.KindGuide))
	}
	if fields := composer.ValidateGuide(d.Guide); len(fields) > 0 {
		return nil, nil, errors.NewValidation(fields)
	}
	if d.Guide.Cover != nil && !d.Guide.Cover.Resolved() {
		return nil, nil, errors.NewPrecondition("the guide cover has not been uploaded yet")
	}

	selection := p.drafts.LoadSelection()
	if len(selection) == 0 {
		return nil, nil, errors.NewPrecondition(config.ErrEmptySelection)
	}
	return d, selection, nil
}

func (p *Publisher) finish() {
	if err := p.drafts.Clear(draft.KindGuide); err != nil {
		publishLogger.Warn().Err(err).Msg("Could not clear guide draft")
	}
	if err := p.drafts.ClearSelection(); err != nil {
		publishLogger.Warn().Err(err).Msg("Could not clear guide selection")
	}
	if err := p.drafts.ClearHandoff(); err != nil {
		publishLogger.Warn().Err(err).Msg("Could not clear tip hand-off")
	}
}
