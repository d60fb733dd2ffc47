package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const CanvasIDKey contextKey = "canvasID"

// RequireEdit only lets requests through that carry a bearer token for the
// canvas named by the route variable param.
func (s *Service) RequireEdit(param string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			canvasID := mux.Vars(r)[param]
			if err := s.Authorize(parts[1], canvasID); err != nil {
				if errors.Is(err, ErrWrongCanvas) {
					writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
					return
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), CanvasIDKey, canvasID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CanvasIDFromContext(ctx context.Context) string {
	canvasID, _ := ctx.Value(CanvasIDKey).(string)
	return canvasID
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
