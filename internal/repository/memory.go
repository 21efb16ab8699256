package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/google/uuid"
)

// Fault makes the named memory operation fail. After counts successful calls before the
// failure; Err is returned once and the fault is then cleared.
type Fault struct {
	After int
	Err   error
}

// Memory operation names accepted by MemoryRepository.Inject.
const (
	OpCreateTip          = "create_tip"
	OpCreateGuide        = "create_guide"
	OpCreateAssociations = "create_associations"
	OpInsertEdge         = "insert_edge"
	OpDeleteEdge         = "delete_edge"
)

// MemoryRepository is an in-process Store used for ephemeral runs and tests. It mirrors the
// relational constraints: associations need an existing guide and tip, and edges are unique.
type MemoryRepository struct { // implements Store
	mu sync.Mutex

	tips         map[model.TipID]*model.Tip
	tipOrder     []model.TipID
	guides       map[model.GuideID]*model.Guide
	associations []model.Association
	edges        map[model.Edge]struct{}
	comments     map[model.TipID][]model.Comment

	faults map[string]*Fault
	calls  map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tips:     make(map[model.TipID]*model.Tip),
		guides:   make(map[model.GuideID]*model.Guide),
		edges:    make(map[model.Edge]struct{}),
		comments: make(map[model.TipID][]model.Comment),
		faults:   make(map[string]*Fault),
		calls:    make(map[string]int),
	}
}

func (m *MemoryRepository) Inject(op string, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = &f
}

// Calls reports how many times op was invoked, failed calls included.
func (m *MemoryRepository) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// fail must be called with mu held.
func (m *MemoryRepository) fail(op string) error {
	m.calls[op]++
	f, ok := m.faults[op]
	if !ok {
		return nil
	}
	if f.After > 0 {
		f.After--
		return nil
	}
	delete(m.faults, op)
	return f.Err
}

func (m *MemoryRepository) CreateTip(_ context.Context, tip *model.Tip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpCreateTip); err != nil {
		return fmt.Errorf("error saving tip: %w", err)
	}
	if _, ok := m.tips[tip.ID]; ok {
		return fmt.Errorf("error saving tip: duplicate id %s", tip.ID)
	}

	stored := *tip
	stored.Images = slices.Clone(nonNil(tip.Images))
	m.tips[tip.ID] = &stored
	m.tipOrder = append(m.tipOrder, tip.ID)
	return nil
}

func (m *MemoryRepository) CreateGuide(_ context.Context, guide *model.Guide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createGuide(guide)
}

func (m *MemoryRepository) createGuide(guide *model.Guide) error {
	if err := m.fail(OpCreateGuide); err != nil {
		return fmt.Errorf("error saving guide: %w", err)
	}
	if _, ok := m.guides[guide.ID]; ok {
		return fmt.Errorf("error saving guide: duplicate id %s", guide.ID)
	}
	stored := *guide
	m.guides[guide.ID] = &stored
	return nil
}

func (m *MemoryRepository) CreateAssociations(_ context.Context, rows []model.Association) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAssociations(rows)
}

func (m *MemoryRepository) createAssociations(rows []model.Association) error {
	if err := m.fail(OpCreateAssociations); err != nil {
		return fmt.Errorf("error saving associations: %w", err)
	}
	for _, a := range rows {
		if _, ok := m.guides[a.GuideID]; !ok {
			return fmt.Errorf("error saving association %s/%s: unknown guide", a.GuideID, a.TipID)
		}
		if _, ok := m.tips[a.TipID]; !ok {
			return fmt.Errorf("error saving association %s/%s: unknown tip", a.GuideID, a.TipID)
		}
		m.associations = append(m.associations, a)
	}
	return nil
}

// CreateGuideWithTips applies the guide and its associations together or not at all.
func (m *MemoryRepository) CreateGuideWithTips(_ context.Context, guide *model.Guide, tips []model.TipID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.associations)
	if err := m.createGuide(guide); err != nil {
		return err
	}
	if err := m.createAssociations(model.Associations(guide.ID, tips)); err != nil {
		delete(m.guides, guide.ID)
		m.associations = m.associations[:before]
		return err
	}
	return nil
}

func (m *MemoryRepository) GetTip(_ context.Context, id model.TipID) (*model.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tip, ok := m.tips[id]
	if !ok {
		return nil, &NotFoundError{Entity: "tip", ID: string(id)}
	}
	return m.tipView(tip), nil
}

func (m *MemoryRepository) tipView(tip *model.Tip) *model.Tip {
	out := *tip
	out.Images = slices.Clone(tip.Images)
	out.Likes = m.count(model.EdgeLike, string(tip.ID))
	return &out
}

func (m *MemoryRepository) GetGuide(_ context.Context, id model.GuideID) (*model.Guide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guides[id]
	if !ok {
		return nil, &NotFoundError{Entity: "guide", ID: string(id)}
	}
	out := *g
	out.Likes = m.count(model.EdgeLike, string(id))
	out.Saves = m.count(model.EdgeSave, string(id))
	return &out, nil
}

func (m *MemoryRepository) ListGuideTips(_ context.Context, id model.GuideID) ([]model.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]model.Association, 0)
	for _, a := range m.associations {
		if a.GuideID == id {
			rows = append(rows, a)
		}
	}
	slices.SortFunc(rows, func(a, b model.Association) int { return a.Ordinal - b.Ordinal })

	tips := make([]model.Tip, 0, len(rows))
	for _, a := range rows {
		tips = append(tips, *m.tipView(m.tips[a.TipID]))
	}
	return tips, nil
}

func (m *MemoryRepository) ListTips(_ context.Context, author model.UserID, limit int) ([]model.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	tips := make([]model.Tip, 0)
	for i := len(m.tipOrder) - 1; i >= 0 && len(tips) < limit; i-- {
		tip := m.tips[m.tipOrder[i]]
		if author != "" && tip.Author != author {
			continue
		}
		tips = append(tips, *m.tipView(tip))
	}
	return tips, nil
}

// Associations returns every stored association row in insertion order.
func (m *MemoryRepository) Associations() []model.Association {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.associations)
}

func (m *MemoryRepository) GuideCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.guides)
}

func (m *MemoryRepository) TipCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tips)
}

func (m *MemoryRepository) InsertEdge(_ context.Context, e model.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpInsertEdge); err != nil {
		return fmt.Errorf("error inserting %s edge: %w", e.Kind, err)
	}
	m.edges[e] = struct{}{}
	return nil
}

func (m *MemoryRepository) DeleteEdge(_ context.Context, e model.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail(OpDeleteEdge); err != nil {
		return fmt.Errorf("error deleting %s edge: %w", e.Kind, err)
	}
	delete(m.edges, e)
	return nil
}

func (m *MemoryRepository) EdgeExists(_ context.Context, e model.Edge) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[e]
	return ok, nil
}

func (m *MemoryRepository) CountEdges(_ context.Context, kind model.EdgeKind, target string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count(kind, target), nil
}

func (m *MemoryRepository) count(kind model.EdgeKind, target string) int {
	n := 0
	for e := range m.edges {
		if e.Kind == kind && e.Target == target {
			n++
		}
	}
	return n
}

func (m *MemoryRepository) AddComment(_ context.Context, tip model.TipID, author model.UserID, text string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tips[tip]
	if !ok {
		return nil, &NotFoundError{Entity: "tip", ID: string(tip)}
	}

	c := model.Comment{
		ID:        model.CommentID(uuid.New().String()),
		TipID:     tip,
		Author:    author,
		Text:      text,
		CreatedAt: now(),
	}
	m.comments[tip] = append(m.comments[tip], c)
	t.Comments++
	return &c, nil
}

func (m *MemoryRepository) ListComments(_ context.Context, tip model.TipID) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Comment{}, m.comments[tip]...), nil
}
