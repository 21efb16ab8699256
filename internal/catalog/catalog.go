// Package catalog manages the list of tips chosen for the guide being built.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/rs/zerolog"
)

var catalogLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	catalogLogger = l
}

type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

type Outcome string

const (
	Added   Outcome = "added"
	Removed Outcome = "removed"
	// Full means the tip was not added because the selection is at capacity.
	Full Outcome = "full"
)

// TipReader resolves the tip handed over by the tip composer.
type TipReader interface {
	GetTip(ctx context.Context, id model.TipID) (*model.Tip, error)
}

// Candidate is a tip as shown in the catalog.
type Candidate struct {
	model.Tip
	Selected bool `json:"selected"`
	// Position is the 1-based place in the selection, zero when not selected.
	Position int `json:"position"`
	// Fresh marks the tip that was just created from inside the guide flow.
	Fresh bool `json:"fresh"`
}

type Catalog struct {
	store *draft.Store

	mu        sync.Mutex
	selection []model.TipID
	fresh     *model.Tip
	notice    string
}

// Open reads the selection and the hand-off slot back from the store, so it resumes whatever
// an earlier session left behind.
func Open(ctx context.Context, store *draft.Store, tips TipReader) *Catalog {
	c := &Catalog{
		store:     store,
		selection: store.LoadSelection(),
	}

	if id, ok := store.LoadHandoff(); ok && tips != nil {
		tip, err := tips.GetTip(ctx, id)
		if err != nil {
			catalogLogger.Warn().Err(err).Str("tip_id", string(id)).Msg("Handed-over tip is unavailable")
		} else {
			c.fresh = tip
		}
	}
	return c
}

func (c *Catalog) Max() int {
	return c.store.MaxSelection()
}

func (c *Catalog) Selection() []model.TipID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selection)
}

// Toggle adds the tip if it is not selected and removes it otherwise. Adding to a full
// selection changes nothing and leaves a notice.
func (c *Catalog) Toggle(id model.TipID) (Outcome, error) {
	if id == "" {
		return "", errors.NewInvalidRequest("tip id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(c.selection)
	outcome := Added
	if i := slices.Index(next, id); i >= 0 {
		next = slices.Delete(next, i, i+1)
		outcome = Removed
	} else if len(next) >= c.Max() {
		c.notice = fmt.Sprintf(config.ErrSelectionCapFmt, c.Max())
		return Full, nil
	} else {
		next = append(next, id)
	}

	if err := c.persist(next); err != nil {
		return "", err
	}
	return outcome, nil
}

// Reorder swaps the entry at index with its neighbour. Moves past either end do nothing and
// report false.
func (c *Catalog) Reorder(index int, dir Direction) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	to := index + int(dir)
	if index < 0 || index >= len(c.selection) || to < 0 || to >= len(c.selection) {
		return false, nil
	}

	next := slices.Clone(c.selection)
	next[index], next[to] = next[to], next[index]
	if err := c.persist(next); err != nil {
		return false, err
	}
	return true, nil
}

// persist must be called with mu held.
func (c *Catalog) persist(next []model.TipID) error {
	if err := c.store.SaveSelection(next); err != nil {
		return errors.NewInternal(fmt.Errorf("error saving selection: %w", err))
	}
	c.selection = next
	return nil
}

// Notice returns the pending transient message, if any, and clears it.
func (c *Catalog) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notice
	c.notice = ""
	return n
}

// Candidates decorates base with the selection state. The handed-over tip goes first and
// appears only once.
func (c *Catalog) Candidates(base []model.Tip) []Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Candidate, 0, len(base)+1)
	if c.fresh != nil {
		out = append(out, c.candidate(*c.fresh, true))
	}
	for _, tip := range base {
		if c.fresh != nil && tip.ID == c.fresh.ID {
			continue
		}
		out = append(out, c.candidate(tip, false))
	}
	return out
}

func (c *Catalog) candidate(tip model.Tip, fresh bool) Candidate {
	pos := slices.Index(c.selection, tip.ID) + 1
	return Candidate{Tip: tip, Selected: pos > 0, Position: pos, Fresh: fresh}
}

// Continue closes the selection step. The hand-off has served its purpose at this point.
func (c *Catalog) Continue() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.selection) == 0 {
		return errors.NewPrecondition(config.ErrEmptySelection)
	}
	if err := c.store.ClearHandoff(); err != nil {
		return errors.NewInternal(err)
	}
	c.fresh = nil
	return nil
}

// Abandon drops the whole guide flow.
func (c *Catalog) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection = []model.TipID{}
	c.fresh = nil
	c.notice = ""

	for _, fn := range []func() error{
		c.store.ClearSelection,
		c.store.ClearHandoff,
		func() error { return c.store.Clear(draft.KindGuide) },
	} {
		if err := fn(); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}
