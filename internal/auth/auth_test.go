package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret", time.Hour)

	tok, err := s.IssueEditToken("canvas_1")
	require.NoError(t, err)

	id, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "canvas_1", id)

	assert.NoError(t, s.Authorize(tok, "canvas_1"))
	assert.ErrorIs(t, s.Authorize(tok, "canvas_2"), ErrWrongCanvas)
}

func TestValidateRejects(t *testing.T) {
	s := NewService("secret", time.Hour)

	other, err := NewService("other", time.Hour).IssueEditToken("canvas_1")
	require.NoError(t, err)
	_, err = s.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewService("secret", -time.Minute).IssueEditToken("canvas_1")
	require.NoError(t, err)
	_, err = s.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noScope, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "canvas_1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.ValidateToken(noScope)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireEdit(t *testing.T) {
	s := NewService("secret", time.Hour)
	tok, err := s.IssueEditToken("canvas_1")
	require.NoError(t, err)

	r := mux.NewRouter()
	sub := r.PathPrefix("/canvases/{id}").Subrouter()
	sub.Use(s.RequireEdit("id"))
	sub.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(CanvasIDFromContext(r.Context())))
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"ok", "/canvases/canvas_1", "Bearer " + tok, http.StatusOK},
		{"missing", "/canvases/canvas_1", "", http.StatusUnauthorized},
		{"bad format", "/canvases/canvas_1", "Token " + tok, http.StatusUnauthorized},
		{"bad token", "/canvases/canvas_1", "Bearer nope", http.StatusUnauthorized},
		{"other canvas", "/canvases/canvas_2", "Bearer " + tok, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "canvas_1", rec.Body.String())
			}
		})
	}
}
