// Package auth carries the request principal and enforces role and ownership
// rules. Identity itself comes from an upstream collaborator (the session
// layer); everything here trusts the principal it is handed.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

// Principal is the normalized view of the authenticated caller attached to
// the request context.
type Principal struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == models.RoleAdmin }

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// CanAccessResource reports whether p may touch a resource owned by ownerID:
// admins always, everyone else only their own.
func CanAccessResource(p *Principal, ownerID string) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin() || p.ID == ownerID
}

// Options controls Guard.Require. The zero value requires authentication and
// nothing else.
type Options struct {
	AllowAnonymous bool
	Roles          []models.Role
}

type Guard struct {
	Audit *audit.Recorder
}

// Require wraps a handler with principal-presence and role checks. Role
// failures are always audit-logged; a missing principal is a plain 401.
func (g *Guard) Require(opts Options) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				if opts.AllowAnonymous {
					next(w, r)
					return
				}
				writeError(w, apperr.Unauthorized("authentication required"))
				return
			}

			if len(opts.Roles) > 0 && !roleAllowed(p.Role, opts.Roles) {
				if g.Audit != nil {
					g.Audit.Record(audit.Event{
						UserID:    p.ID,
						UserEmail: p.Email,
						Action:    "FORBIDDEN_ROLE",
						Resource:  r.URL.Path,
						Success:   false,
						Request:   r,
						Details:   map[string]any{"role": string(p.Role)},
					})
				}
				writeError(w, apperr.Forbidden("insufficient permissions"))
				return
			}

			next(w, r)
		}
	}
}

// Auth requires only an authenticated principal.
func (g *Guard) Auth(next http.HandlerFunc) http.HandlerFunc {
	return g.Require(Options{})(next)
}

// Admin requires the admin role.
func (g *Guard) Admin(next http.HandlerFunc) http.HandlerFunc {
	return g.Require(Options{Roles: []models.Role{models.RoleAdmin}})(next)
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperr.MessageOf(err),
		"code":    string(apperr.CodeOf(err)),
	})
}
