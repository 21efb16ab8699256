// Package draft holds in-progress tip and guide state and the scratch store that keeps it
// across requests, reloads and CLI invocations.
package draft

import (
	"fmt"
	"slices"

	"github.com/debemdeboas/roteiro/internal/model"
)

type Kind string

const (
	KindTip   Kind = "tip"
	KindGuide Kind = "guide"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindTip, KindGuide:
		return k, nil
	}
	return "", fmt.Errorf("unknown draft kind %q", s)
}

// Pending is a local image that has not been uploaded yet.
type Pending struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

// Media is either a resolved URL or a pending upload, never both.
type Media struct {
	URL     string   `json:"url,omitempty"`
	Pending *Pending `json:"pending,omitempty"`
}

func (m Media) Resolved() bool {
	return m.Pending == nil && m.URL != ""
}

func URLMedia(url string) Media {
	return Media{URL: url}
}

func PendingMedia(name, contentType string, data []byte) Media {
	return Media{Pending: &Pending{Name: name, ContentType: contentType, Data: data}}
}

type TipDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Category    model.Category `json:"category"`
	Media       []Media        `json:"media"`
}

type GuideDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	City        string         `json:"city"`
	Category    model.Category `json:"category"`
	Cover       *Media         `json:"cover,omitempty"`
}

// Draft is a tagged variant: exactly the field matching Kind is set.
type Draft struct {
	Kind  Kind        `json:"kind"`
	Tip   *TipDraft   `json:"tip,omitempty"`
	Guide *GuideDraft `json:"guide,omitempty"`
}

func NewTip() *Draft {
	return &Draft{Kind: KindTip, Tip: &TipDraft{Media: []Media{}}}
}

func NewGuide() *Draft {
	return &Draft{Kind: KindGuide, Guide: &GuideDraft{}}
}

// New returns an empty draft of the given kind.
func New(kind Kind) *Draft {
	if kind == KindGuide {
		return NewGuide()
	}
	return NewTip()
}

// Check reports whether d is a well-formed variant.
func (d *Draft) Check() error {
	if d == nil {
		return fmt.Errorf("nil draft")
	}
	switch d.Kind {
	case KindTip:
		if d.Tip == nil || d.Guide != nil {
			return fmt.Errorf("tip draft must carry only tip fields")
		}
	case KindGuide:
		if d.Guide == nil || d.Tip != nil {
			return fmt.Errorf("guide draft must carry only guide fields")
		}
	default:
		return fmt.Errorf("unknown draft kind %q", d.Kind)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching stored state.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := &Draft{Kind: d.Kind}
	if d.Tip != nil {
		t := *d.Tip
		t.Media = make([]Media, len(d.Tip.Media))
		for i, m := range d.Tip.Media {
			t.Media[i] = m.clone()
		}
		out.Tip = &t
	}
	if d.Guide != nil {
		g := *d.Guide
		if d.Guide.Cover != nil {
			c := d.Guide.Cover.clone()
			g.Cover = &c
		}
		out.Guide = &g
	}
	return out
}

func (m Media) clone() Media {
	if m.Pending == nil {
		return m
	}
	p := *m.Pending
	p.Data = slices.Clone(m.Pending.Data)
	return Media{URL: m.URL, Pending: &p}
}

// PendingCount is the number of media still waiting for upload.
func (t *TipDraft) PendingCount() int {
	n := 0
	for _, m := range t.Media {
		if !m.Resolved() {
			n++
		}
	}
	return n
}

// URLs returns the resolved media URLs in order. ok is false while any media is pending.
func (t *TipDraft) URLs() (urls []string, ok bool) {
	urls = make([]string, 0, len(t.Media))
	for _, m := range t.Media {
		if !m.Resolved() {
			return nil, false
		}
		urls = append(urls, m.URL)
	}
	return urls, true
}
