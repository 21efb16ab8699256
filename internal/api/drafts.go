package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/render"
)

// fieldsRequest carries the form fields of either draft kind. Fields that do not apply to
// the kind are rejected.
type fieldsRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	City        *string `json:"city"`
	Category    *string `json:"category"`
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func kindParam(r *http.Request) (draft.Kind, error) {
	kind, err := draft.ParseKind(r.PathValue("kind"))
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return kind, nil
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var d *draft.Draft
	if kind == draft.KindTip {
		d = s.tip.Draft()
	} else {
		d = s.guide.Draft()
	}
	writeJSON(w, http.StatusOK, d)
}

// putDraft updates the fields sent and leaves the others alone. Media are managed by their
// own endpoints.
func (s *Server) putDraft(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req fieldsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if kind == draft.KindTip {
		if req.City != nil {
			writeError(w, r, errors.NewInvalidRequest("city does not apply to tips"))
			return
		}
		err = s.tip.Edit(func(t *draft.TipDraft) {
			set(&t.Title, req.Title)
			set(&t.Description, req.Description)
			set(&t.Location, req.Location)
			if req.Category != nil {
				t.Category = model.Category(*req.Category)
			}
		})
	} else {
		if req.Location != nil {
			writeError(w, r, errors.NewInvalidRequest("location does not apply to guides"))
			return
		}
		err = s.guide.Edit(func(g *draft.GuideDraft) {
			set(&g.Title, req.Title)
			set(&g.Description, req.Description)
			set(&g.City, req.City)
			if req.Category != nil {
				g.Category = model.Category(*req.Category)
			}
		})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.getDraft(w, r)
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if kind == draft.KindTip {
		err = s.tip.Discard()
	} else {
		err = s.guide.Discard()
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readImages returns the files of a multipart form field.
func readImages(w http.ResponseWriter, r *http.Request, field string) ([]composer.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.NewInvalidRequest("expected a multipart form: " + err.Error())
	}

	headers := r.MultipartForm.File[field]
	images := make([]composer.Image, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		images = append(images, composer.Image{
			Name:        h.Filename,
			ContentType: h.Header.Get(config.HCType),
			Data:        data,
		})
	}
	return images, nil
}

func (s *Server) addTipImages(w http.ResponseWriter, r *http.Request) {
	images, err := readImages(w, r, "image")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(images) == 0 {
		writeError(w, r, errors.NewInvalidRequest("no image in field \"image\""))
		return
	}

	for _, img := range images {
		if err := s.tip.AddImage(img); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.tip.Draft())
}

func (s *Server) removeTipImage(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, errors.NewInvalidRequest("image index must be a number"))
		return
	}
	if err := s.tip.RemoveImage(i); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tip.Draft())
}

type stateResponse struct {
	State string `json:"state"`
}

func (s *Server) submitTip(w http.ResponseWriter, r *http.Request) {
	if err := s.tip.Submit(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.tip.State().String()})
}

func (s *Server) backTip(w http.ResponseWriter, r *http.Request) {
	if err := s.tip.Back(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.tip.State().String()})
}

// previewTip renders the tip awaiting confirmation as json (default), html or term.
func (s *Server) previewTip(w http.ResponseWriter, r *http.Request) {
	preview, err := s.tip.Preview()
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, preview)
		return
	case render.FormatHTML, render.FormatTerminal:
	default:
		writeError(w, r, errors.NewInvalidRequest("unknown preview format "+strconv.Quote(format)))
		return
	}

	body, err := render.Cached(s.tip.Draft(), format)
	if err != nil {
		writeError(w, r, errors.NewInternal(err))
		return
	}
	if format == render.FormatHTML {
		w.Header().Set(config.HCType, "text/html; charset=utf-8")
	} else {
		w.Header().Set(config.HCType, "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) publishTip(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Auth.EnforceUserAndGetId(w, r); err != nil {
		return
	}

	forGuide, _ := strconv.ParseBool(r.URL.Query().Get("for_guide"))
	s.tip.SetForGuide(forGuide)

	tip, err := s.tip.Publish(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tip)
}

func (s *Server) saveTipDraft(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Auth.EnforceUserAndGetId(w, r); err != nil {
		return
	}

	tip, err := s.tip.SaveAsDraft(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tip)
}
