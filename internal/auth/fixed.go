package auth

import (
	"errors"
	"net/http"

	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

var ErrNoUser = errors.New("no user in request context")

// FixedAuthProvider attributes every request to one configured user.
type FixedAuthProvider struct {
	userId model.UserID
}

func NewFixedAuthProvider(userId model.UserID) *FixedAuthProvider {
	return &FixedAuthProvider{userId: userId}
}

func (p *FixedAuthProvider) UserId() model.UserID {
	return p.userId
}

// WithHeaderAuthorization puts the fixed user in every request context.
func (p *FixedAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserId(r.Context(), p.userId)))
		})
	}
}

func (p *FixedAuthProvider) EnforceUserAndGetId(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	usrId, ok := UserIdFromContext(r.Context())
	if !ok {
		authLogger.Warn().Str("path", r.URL.Path).Msg("Request reached a handler without a user")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", ErrNoUser
	}
	return usrId, nil
}
