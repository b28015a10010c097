package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

// AuthHandler turns a valid email/password pair into a session cookie. It
// exists to exercise the identity collaborator; account management lives
// elsewhere (the CLI seeds users).
type AuthHandler struct {
	Store    *store.Store
	Sessions *sessions.CookieStore
	Audit    *audit.Recorder
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.Invalid("email and password are required"))
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.CodeInternal, "login failed", err))
		return
	}
	if user == nil || !user.IsActive ||
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		h.Audit.Record(audit.Event{
			UserEmail: req.Email,
			Action:    "LOGIN_FAILED", Resource: "session",
			Success: false, Request: r,
		})
		writeError(w, apperr.Unauthorized("invalid email or password"))
		return
	}

	session, _ := h.Sessions.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to save session", "error", err)
		writeError(w, apperr.Wrap(apperr.CodeInternal, "login failed", err))
		return
	}

	h.Audit.Record(audit.Event{
		UserID: user.ID, UserEmail: user.Email,
		Action: "LOGIN", Resource: "session",
		Success: true, Request: r,
	})
	writeJSON(w, http.StatusOK, auth.Principal{
		ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	session, _ := h.Sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to clear session", "error", err)
	}

	if p != nil {
		h.Audit.Record(audit.Event{
			UserID: p.ID, UserEmail: p.Email,
			Action: "LOGOUT", Resource: "session",
			Success: true, Request: r,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}
