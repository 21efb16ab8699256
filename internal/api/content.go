package api

import (
	"net/http"
	"strings"

	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/engagement"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
)

func (s *Server) mountEngagement(w http.ResponseWriter, r *http.Request) {
	toggle, err := s.toggleFor(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if toggle == nil {
		return
	}

	state, err := toggle.Mount(r.Context())
	if err != nil {
		writeError(w, r, errors.NewInternal(err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// toggleEngagement answers with the optimistic state. The edge write finishes in the
// background.
func (s *Server) toggleEngagement(w http.ResponseWriter, r *http.Request) {
	toggle, err := s.toggleFor(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if toggle == nil {
		return
	}
	writeJSON(w, http.StatusOK, toggle.Toggle(r.Context()))
}

// toggleFor resolves the control for the request's edge. A nil toggle with a nil error
// means the response was already written.
func (s *Server) toggleFor(w http.ResponseWriter, r *http.Request) (*engagement.Toggle, error) {
	usrId, err := s.deps.Auth.EnforceUserAndGetId(w, r)
	if err != nil {
		return nil, nil
	}

	kind, err := model.ParseEdgeKind(r.PathValue("kind"))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	target := strings.TrimSpace(r.PathValue("target"))
	if target == "" {
		return nil, errors.NewInvalidRequest("target is required")
	}
	return s.engagement.Toggle(kind, usrId, target), nil
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	usrId, err := s.deps.Auth.EnforceUserAndGetId(w, r)
	if err != nil {
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	text, err := composer.ValidateComment(req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.deps.Repo.AddComment(r.Context(), model.TipID(r.PathValue("id")), usrId, text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.deps.Repo.ListComments(r.Context(), model.TipID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) listTips(w http.ResponseWriter, r *http.Request) {
	author := model.UserID(r.URL.Query().Get("author"))
	if author == "" {
		author = s.deps.Author
	}
	tips, err := s.deps.Repo.ListTips(r.Context(), author, limitParam(r, candidateLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tips)
}

func (s *Server) getTip(w http.ResponseWriter, r *http.Request) {
	tip, err := s.deps.Repo.GetTip(r.Context(), model.TipID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (s *Server) getGuide(w http.ResponseWriter, r *http.Request) {
	guide, err := s.deps.Repo.GetGuide(r.Context(), model.GuideID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guide)
}

func (s *Server) listGuideTips(w http.ResponseWriter, r *http.Request) {
	tips, err := s.deps.Repo.ListGuideTips(r.Context(), model.GuideID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tips)
}
