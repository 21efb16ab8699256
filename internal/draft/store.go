package draft

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository/scratch"
	"github.com/debemdeboas/roteiro/internal/util"
	"github.com/rs/zerolog"
)

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

type Options struct {
	// Debounce delays draft writes until edits pause. Zero writes through.
	Debounce time.Duration
	// MaxSelection bounds the selection list.
	MaxSelection int
}

type pendingWrite struct {
	data  []byte
	timer *time.Timer
}

// Store is the scratch area for drafts, the guide selection list and the new-tip hand-off.
// There is one slot per kind; saving replaces whatever the slot held.
type Store struct {
	medium scratch.Medium
	opts   Options

	mu      sync.Mutex
	pending map[string]*pendingWrite

	writeMu sync.Mutex
}

func NewStore(medium scratch.Medium, opts Options) *Store {
	if opts.MaxSelection <= 0 {
		opts.MaxSelection = 20
	}
	return &Store{
		medium:  medium,
		opts:    opts,
		pending: make(map[string]*pendingWrite),
	}
}

func (s *Store) MaxSelection() int {
	return s.opts.MaxSelection
}

func draftKey(kind Kind) string {
	if kind == KindGuide {
		return config.KeyGuideDraft
	}
	return config.KeyTipDraft
}

// Load returns a copy of the kind's draft. Unreadable data counts as no draft.
func (s *Store) Load(kind Kind) (*Draft, bool) {
	key := draftKey(kind)

	s.mu.Lock()
	p, ok := s.pending[key]
	var data []byte
	if ok {
		data = p.data
	}
	s.mu.Unlock()

	if !ok {
		var err error
		data, ok, err = s.medium.Get(key)
		if err != nil {
			draftLogger.Warn().Err(err).Str("key", key).Msg("Unreadable draft, starting over")
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		draftLogger.Warn().Err(err).Str("key", key).Msg("Corrupt draft, starting over")
		return nil, false
	}
	if err := d.Check(); err != nil || d.Kind != kind {
		draftLogger.Warn().Err(err).Str("key", key).Msg("Malformed draft, starting over")
		return nil, false
	}
	return &d, true
}

// Save replaces the kind's draft. With a debounce configured the write lands once edits
// pause; Load sees the new value immediately either way.
func (s *Store) Save(kind Kind, d *Draft) error {
	if err := d.Check(); err != nil {
		return err
	}
	if d.Kind != kind {
		return fmt.Errorf("cannot save a %s draft in the %s slot", d.Kind, kind)
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error encoding draft: %w", err)
	}

	key := draftKey(kind)
	if s.opts.Debounce <= 0 {
		return s.write(key, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
	}
	p := &pendingWrite{data: data}
	p.timer = time.AfterFunc(s.opts.Debounce, func() { s.flushKey(key, p) })
	s.pending[key] = p
	return nil
}

func (s *Store) flushKey(key string, p *pendingWrite) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current := s.pending[key]
	s.mu.Unlock()
	if current != p {
		// Replaced or cleared since the timer was armed.
		return
	}

	if err := s.writeLocked(key, p.data); err != nil {
		draftLogger.Error().Err(err).Str("key", key).Msg("Debounced draft write failed")
	}

	s.mu.Lock()
	if s.pending[key] == p {
		delete(s.pending, key)
	}
	s.mu.Unlock()
}

// Flush writes every debounced draft now.
func (s *Store) Flush() error {
	s.mu.Lock()
	batch := make(map[string]*pendingWrite, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		batch[key] = p
	}
	s.mu.Unlock()

	var firstErr error
	for key, p := range batch {
		s.writeMu.Lock()
		s.mu.Lock()
		current := s.pending[key]
		s.mu.Unlock()
		if current == p {
			if err := s.writeLocked(key, p.data); err != nil && firstErr == nil {
				firstErr = err
			}
			s.mu.Lock()
			if s.pending[key] == p {
				delete(s.pending, key)
			}
			s.mu.Unlock()
		}
		s.writeMu.Unlock()
	}
	return firstErr
}

func (s *Store) Close() error {
	return s.Flush()
}

func (s *Store) write(key string, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(key, data)
}

// writeLocked skips values identical to what the medium holds under key. Other stores
// may share the medium, so the comparison is against its current contents.
func (s *Store) writeLocked(key string, data []byte) error {
	if current, ok, err := s.medium.Get(key); err == nil && ok &&
		util.ContentHash(current) == util.ContentHash(data) {
		draftLogger.Debug().Str("key", key).Msg("Unchanged, skipping write")
		return nil
	}
	return s.medium.Put(key, data)
}

func (s *Store) remove(key string) error {
	s.mu.Lock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.medium.Delete(key)
}

// Clear drops the kind's draft, including a debounced write that has not landed.
func (s *Store) Clear(kind Kind) error {
	return s.remove(draftKey(kind))
}

// LoadSelection returns the stored selection list, deduplicated and capped.
func (s *Store) LoadSelection() []model.TipID {
	data, ok, err := s.medium.Get(config.KeyGuideSelection)
	if err != nil {
		draftLogger.Warn().Err(err).Msg("Unreadable selection, starting over")
		return []model.TipID{}
	}
	if !ok {
		return []model.TipID{}
	}

	var ids []model.TipID
	if err := json.Unmarshal(data, &ids); err != nil {
		draftLogger.Warn().Err(err).Msg("Corrupt selection, starting over")
		return []model.TipID{}
	}
	return NormalizeSelection(ids, s.opts.MaxSelection)
}

// SaveSelection writes the list immediately.
func (s *Store) SaveSelection(ids []model.TipID) error {
	data, err := json.Marshal(NormalizeSelection(ids, s.opts.MaxSelection))
	if err != nil {
		return fmt.Errorf("error encoding selection: %w", err)
	}
	return s.write(config.KeyGuideSelection, data)
}

func (s *Store) ClearSelection() error {
	return s.remove(config.KeyGuideSelection)
}

// SaveHandoff records a tip created from inside the guide flow.
func (s *Store) SaveHandoff(id model.TipID) error {
	return s.write(config.KeyGuideNewTip, []byte(id))
}

func (s *Store) LoadHandoff() (model.TipID, bool) {
	data, ok, err := s.medium.Get(config.KeyGuideNewTip)
	if err != nil {
		draftLogger.Warn().Err(err).Msg("Unreadable tip hand-off, ignoring")
		return "", false
	}
	if !ok || len(data) == 0 {
		return "", false
	}
	return model.TipID(data), true
}

func (s *Store) ClearHandoff() error {
	return s.remove(config.KeyGuideNewTip)
}

// NormalizeSelection drops empty and repeated ids, keeping first occurrences, and truncates
// to max entries.
func NormalizeSelection(ids []model.TipID, max int) []model.TipID {
	seen := make(map[model.TipID]struct{}, len(ids))
	out := make([]model.TipID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if max > 0 && len(out) == max {
			break
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
