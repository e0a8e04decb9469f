package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/pavelanni/quizgen/internal/model"
)

const (
	sessionName = "quizgen"
	quizKey     = "quiz"
	csrfKey     = "csrf"
)

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func cookiePath(basePath string) string {
	if basePath == "" {
		return "/"
	}
	return basePath + "/"
}

// cookieSession returns the signed cookie session. A cookie that fails to
// decode is replaced by a fresh session.
func (h *Handler) cookieSession(r *http.Request) *sessions.Session {
	s, err := h.cookies.Get(r, sessionName)
	if err != nil {
		slog.Debug("discarding invalid session cookie", "error", err)
	}
	return s
}

// csrfMiddleware keeps a per-session CSRF token. Safe methods get the token
// in their context; other methods must echo it in the csrf_token form field.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := h.cookieSession(r)
		token, _ := s.Values[csrfKey].(string)

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if token == "" {
				var err error
				token, err = randomToken()
				if err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				s.Values[csrfKey] = token
				if err := s.Save(r, w); err != nil {
					slog.Error("failed to save session cookie", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(model.ContextWithCSRFToken(r.Context(), token)))
			return
		}

		formToken := r.FormValue("csrf_token")
		if token == "" || formToken == "" {
			slog.Warn("CSRF token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}
		if subtle.ConstantTimeCompare([]byte(formToken), []byte(token)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithCSRFToken(r.Context(), token)))
	})
}
