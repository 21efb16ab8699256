package api

import (
	"net/http"
	"strconv"

	"github.com/debemdeboas/roteiro/internal/catalog"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
)

const candidateLimit = 50

type selectionResponse struct {
	Selection  []model.TipID        `json:"selection"`
	Max        int                  `json:"max"`
	Candidates []catalog.Candidate `json:"candidates,omitempty"`
	Outcome    catalog.Outcome     `json:"outcome,omitempty"`
	Moved      *bool               `json:"moved,omitempty"`
	Notice     string              `json:"notice,omitempty"`
}

// open reads the catalog back from the draft store, like a page that was just loaded.
func (s *Server) open(r *http.Request) *catalog.Catalog {
	return catalog.Open(r.Context(), s.deps.Drafts, s.deps.Repo)
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	c := s.open(r)

	tips, err := s.deps.Repo.ListTips(r.Context(), s.deps.Author, candidateLimit)
	if err != nil {
		writeError(w, r, errors.NewInternal(err))
		return
	}

	writeJSON(w, http.StatusOK, selectionResponse{
		Selection:  c.Selection(),
		Max:        c.Max(),
		Candidates: c.Candidates(tips),
	})
}

type toggleRequest struct {
	TipID model.TipID `json:"tip_id"`
}

func (s *Server) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c := s.open(r)
	outcome, err := c.Toggle(req.TipID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{
		Selection: c.Selection(),
		Max:       c.Max(),
		Outcome:   outcome,
		Notice:    c.Notice(),
	})
}

type reorderRequest struct {
	Index     int    `json:"index"`
	Direction string `json:"direction"`
}

func (s *Server) reorderSelection(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dir, err := catalog.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}

	c := s.open(r)
	moved, err := c.Reorder(req.Index, dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{
		Selection: c.Selection(),
		Max:       c.Max(),
		Moved:     &moved,
	})
}

func (s *Server) continueSelection(w http.ResponseWriter, r *http.Request) {
	c := s.open(r)
	if err := c.Continue(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selection: c.Selection(), Max: c.Max()})
}

func (s *Server) abandonSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.open(r).Abandon(); err != nil {
		writeError(w, r, err)
		return
	}
	s.guide.Reload()
	w.WriteHeader(http.StatusNoContent)
}

func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
