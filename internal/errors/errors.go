package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode represents a Roteiro error code.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION"      // 422
	ErrUploadFailed   ErrorCode = "UPLOAD_FAILED"   // 502
	ErrCreateFailed   ErrorCode = "CREATE_FAILED"   // 502
	ErrPartialPublish ErrorCode = "PARTIAL_PUBLISH" // 502
	ErrPrecondition   ErrorCode = "PRECONDITION"    // 409
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// RoteiroError represents a structured error with code, status, and details.
type RoteiroError struct {
	Code    ErrorCode
	Status  int
	Message string
	// Fields holds field-scoped messages for validation errors.
	Fields  map[string]string
	Details map[string]any
	Err     error
}

func (e *RoteiroError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RoteiroError) Unwrap() error {
	return e.Err
}

// NewValidation creates a 422 error from field-scoped messages.
func NewValidation(fields map[string]string) *RoteiroError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &RoteiroError{
		Code:    ErrValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")),
		Fields:  fields,
	}
}

// NewUploadFailed creates a 502 error for an abandoned upload batch. urls are the files
// stored before the failure.
func NewUploadFailed(err error, urls []string) *RoteiroError {
	return &RoteiroError{
		Code:    ErrUploadFailed,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("media upload failed: %v", err),
		Details: map[string]any{"uploaded": urls},
		Err:     err,
	}
}

// NewCreateFailed creates a 502 error for a failed insert of the named entity.
func NewCreateFailed(entity string, err error) *RoteiroError {
	return &RoteiroError{
		Code:    ErrCreateFailed,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("could not create %s: %v", entity, err),
		Details: map[string]any{"entity": entity},
		Err:     err,
	}
}

// NewPartialPublish reports a guide that was created without its associations.
func NewPartialPublish(guideID string, err error) *RoteiroError {
	return &RoteiroError{
		Code:    ErrPartialPublish,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("guide %s was created but its tips could not be attached: %v", guideID, err),
		Details: map[string]any{"guide_id": guideID},
		Err:     err,
	}
}

func NewPrecondition(msg string) *RoteiroError {
	return &RoteiroError{
		Code:    ErrPrecondition,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

func NewNotFound(entity, id string) *RoteiroError {
	return &RoteiroError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func NewInvalidRequest(msg string) *RoteiroError {
	return &RoteiroError{
		Code:    ErrInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RoteiroError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RoteiroError{
		Code:    ErrInternal,
		Status:  http.StatusInternalServerError,
		Message: msg,
		Err:     err,
	}
}

// As returns the RoteiroError in err's chain, if any.
func As(err error) (*RoteiroError, bool) {
	var rErr *RoteiroError
	if stderrors.As(err, &rErr) {
		return rErr, true
	}
	return nil, false
}

// Is checks if an error is a RoteiroError with the given code.
func Is(err error, code ErrorCode) bool {
	if rErr, ok := As(err); ok {
		return rErr.Code == code
	}
	return false
}

// StatusOf maps err to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	if rErr, ok := As(err); ok {
		return rErr.Status
	}
	return http.StatusInternalServerError
}
