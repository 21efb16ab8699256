package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debemdeboas/roteiro/internal/model"
)

func TestFixedAuthProvider(t *testing.T) {
	p := NewFixedAuthProvider("u-1")

	var got model.UserID
	handler := p.WithHeaderAuthorization()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := p.EnforceUserAndGetId(w, r)
		if err != nil {
			t.Fatalf("Expected user in context, got %v", err)
		}
		got = id
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got != "u-1" {
		t.Errorf("Expected user 'u-1', got %q", got)
	}
}

func TestEnforceWithoutMiddleware(t *testing.T) {
	p := NewFixedAuthProvider("u-1")
	rec := httptest.NewRecorder()

	_, err := p.EnforceUserAndGetId(rec, httptest.NewRequest(http.MethodGet, "/api/tip/publish", nil))
	if err != ErrNoUser {
		t.Errorf("Expected ErrNoUser, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestUserIdFromContextEmpty(t *testing.T) {
	ctx := ContextWithUserId(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "")
	if _, ok := UserIdFromContext(ctx); ok {
		t.Error("Expected empty user to be rejected")
	}
}
