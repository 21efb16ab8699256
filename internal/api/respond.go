package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Code    errors.ErrorCode  `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLogger.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError maps err to its status code. Errors without a code become INTERNAL.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	rErr, ok := errors.As(toAPIError(err))
	if !ok {
		rErr = errors.NewInternal(err)
	}

	l := zerolog.Ctx(r.Context())
	if rErr.Status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("code", string(rErr.Code)).Msg("Request failed")
	} else {
		l.Debug().Err(err).Str("code", string(rErr.Code)).Msg("Request rejected")
	}

	writeJSON(w, rErr.Status, errorBody{
		Code:    rErr.Code,
		Message: rErr.Message,
		Fields:  rErr.Fields,
		Details: rErr.Details,
	})
}

// toAPIError turns repository lookups that found nothing into NOT_FOUND.
func toAPIError(err error) error {
	var nf *repository.NotFoundError
	if stderrors.As(err, &nf) {
		return errors.NewNotFound(nf.Entity, nf.ID)
	}
	return err
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
