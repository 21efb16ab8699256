package api

import (
	"net/http"
	"strings"

	"github.com/debemdeboas/roteiro/internal/errors"
)

// setGuideCover takes either an uploaded "cover" file or a "url" form value.
func (s *Server) setGuideCover(w http.ResponseWriter, r *http.Request) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		images, rerr := readImages(w, r, "cover")
		if rerr != nil {
			writeError(w, r, rerr)
			return
		}
		if len(images) != 1 {
			writeError(w, r, errors.NewInvalidRequest("send exactly one file in field \"cover\""))
			return
		}
		err = s.guide.SetCover(images[0])
	} else {
		url := strings.TrimSpace(r.FormValue("url"))
		if url == "" {
			writeError(w, r, errors.NewInvalidRequest("url is required"))
			return
		}
		err = s.guide.SetCoverURL(url)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.guide.Draft())
}

func (s *Server) removeGuideCover(w http.ResponseWriter, r *http.Request) {
	if err := s.guide.RemoveCover(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.guide.Draft())
}

func (s *Server) advanceGuide(w http.ResponseWriter, r *http.Request) {
	if err := s.guide.Advance(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.guide.State().String()})
}

func (s *Server) saveGuideDraft(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Auth.EnforceUserAndGetId(w, r); err != nil {
		return
	}

	guide, err := s.guide.SaveAsDraft(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, guide)
}

func (s *Server) publishGuide(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Auth.EnforceUserAndGetId(w, r); err != nil {
		return
	}

	guide, err := s.publisher.Publish(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.guide.Reload()
	writeJSON(w, http.StatusCreated, guide)
}
