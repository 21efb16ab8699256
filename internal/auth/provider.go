package auth

import (
	"net/http"

	"github.com/debemdeboas/roteiro/internal/model"
)

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	EnforceUserAndGetId(w http.ResponseWriter, r *http.Request) (model.UserID, error)
}
