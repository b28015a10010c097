package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/ratelimit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

const sessionName = "bayt-session"

// LoggingMiddleware logs the details of each HTTP request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// Wrap ResponseWriter to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)
		slog.Info("HTTP Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start),
			"ip", r.RemoteAddr,
		)
	})
}

// Custom ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SecurityHeadersMiddleware adds standard security headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// SessionAuth loads the principal for a request from the session cookie. A
// missing or stale session just leaves the request anonymous; the guard
// decides later whether that is acceptable.
type SessionAuth struct {
	Sessions *sessions.CookieStore
	Store    *store.Store
}

func (sa *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := sa.Sessions.Get(r, sessionName)
		userID, _ := session.Values["user_id"].(string)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := sa.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			slog.Error("failed to load session user", "user_id", userID, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if user == nil || !user.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		p := &auth.Principal{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// RateLimit throttles a handler per caller: the principal id when
// authenticated, the client IP otherwise.
func RateLimit(l *ratelimit.Limiter, max int, window time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := audit.ClientIP(r)
			if p, ok := auth.FromContext(r.Context()); ok {
				id = p.ID
			}
			if l.Limited(id, max, window) {
				metrics.RateLimitedTotal.Inc()
				slog.Warn("Rate limit exceeded", "identifier", id, "path", r.URL.Path)
				writeError(w, apperr.RateLimited("too many requests, please try again later"))
				return
			}
			next(w, r)
		}
	}
}
