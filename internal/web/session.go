package web

import (
	"net/http"

	"github.com/JonMunkholm/passgap/internal/logging"
)

// sessionMiddleware resolves the session cookie to a live session, creating
// one when the cookie is missing or has expired, and refreshes the cookie.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	cc := s.cfg.Session

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var current string
		if c, err := r.Cookie(cc.CookieName); err == nil {
			current = c.Value
		}

		id, created := s.service.EnsureSession(current)
		if created {
			logging.FromContext(r.Context()).Debug("session started", "session_id", id, "replaced", current != "")
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cc.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cc.TTL.Seconds()),
			HttpOnly: true,
			Secure:   cc.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(withSessionID(r.Context(), id)))
	})
}
