// Package engagement keeps like, save and follow controls in step with the edge store.
//
// A toggle flips its local state at once and writes to the store afterwards. Writes for one
// (kind, actor, target) are serialized and always apply the newest local value, so a burst
// of toggles converges on a single edge or none. A failed write is logged and the local
// state is kept; the next Mount reads the truth back.
package engagement

import (
	"context"
	"sync"

	"github.com/debemdeboas/roteiro/internal/cache"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/rs/zerolog"
)

var engagementLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	engagementLogger = l
}

type State struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
	// Inert controls do nothing, such as following yourself.
	Inert bool `json:"inert,omitempty"`
}

type Service struct {
	store   repository.EdgeStore
	toggles *cache.Cache[model.Edge, *Toggle]
	writes  sync.WaitGroup
}

func NewService(store repository.EdgeStore) *Service {
	return &Service{
		store:   store,
		toggles: cache.NewCache[model.Edge, *Toggle](),
	}
}

// Toggle returns the control for the edge. Every caller asking for the same edge shares one
// control.
func (s *Service) Toggle(kind model.EdgeKind, actor model.UserID, target string) *Toggle {
	e := model.Edge{Kind: kind, Actor: actor, Target: target}
	return s.toggles.GetOrSet(e, func() *Toggle {
		return &Toggle{svc: s, edge: e}
	})
}

// Wait blocks until every write issued so far has finished.
func (s *Service) Wait() {
	s.writes.Wait()
}

type Toggle struct {
	svc  *Service
	edge model.Edge

	mu    sync.Mutex
	state State
	// pending counts toggles whose store write has not run yet.
	pending int

	// writeMu serializes store writes. remote is the value last written or read back.
	writeMu     sync.Mutex
	remote      bool
	remoteKnown bool
}

func (t *Toggle) Edge() model.Edge {
	return t.edge
}

func (t *Toggle) inert() bool {
	return t.edge.Kind == model.EdgeFollow && string(t.edge.Actor) == t.edge.Target
}

// Mount reads the edge and the target's count from the store. Taps still waiting for their
// write keep their local value; the count is adjusted by the edge they are about to write.
func (t *Toggle) Mount(ctx context.Context) (State, error) {
	if t.inert() {
		return State{Inert: true}, nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	exists, err := t.svc.store.EdgeExists(ctx, t.edge)
	if err != nil {
		return t.State(), err
	}
	count, err := t.svc.store.CountEdges(ctx, t.edge.Kind, t.edge.Target)
	if err != nil {
		return t.State(), err
	}

	t.remote, t.remoteKnown = exists, true

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == 0 {
		t.state = State{Active: exists, Count: count}
		return t.state, nil
	}
	switch {
	case t.state.Active && !exists:
		count++
	case !t.state.Active && exists && count > 0:
		count--
	}
	t.state.Count = count
	return t.state, nil
}

func (t *Toggle) State() State {
	if t.inert() {
		return State{Inert: true}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Toggle flips the local state and returns it. The store write happens in the background;
// ctx values are kept but its cancellation is not.
func (t *Toggle) Toggle(ctx context.Context) State {
	if t.inert() {
		return State{Inert: true}
	}

	t.mu.Lock()
	t.state.Active = !t.state.Active
	if t.state.Active {
		t.state.Count++
	} else if t.state.Count > 0 {
		t.state.Count--
	}
	t.pending++
	s := t.state
	t.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	t.svc.writes.Add(1)
	go func() {
		defer t.svc.writes.Done()
		t.sync(ctx)
	}()
	return s
}

// sync brings the store in line with the current local value.
func (t *Toggle) sync(ctx context.Context) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	defer func() {
		t.mu.Lock()
		t.pending--
		t.mu.Unlock()
	}()

	want := t.State().Active
	if t.remoteKnown && t.remote == want {
		return
	}

	var err error
	if want {
		err = t.svc.store.InsertEdge(ctx, t.edge)
	} else {
		err = t.svc.store.DeleteEdge(ctx, t.edge)
	}
	if err != nil {
		engagementLogger.Warn().Err(err).
			Str("kind", string(t.edge.Kind)).
			Str("actor", string(t.edge.Actor)).
			Str("target", t.edge.Target).
			Bool("active", want).
			Msg("Engagement write failed, keeping local state")
		return
	}
	t.remote, t.remoteKnown = want, true
}
