package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestRequireRejectsMissingPrincipal(t *testing.T) {
	g := &Guard{}
	called := false
	h := g.Auth(okHandler(&called))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/api/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireAllowsAnonymousWhenConfigured(t *testing.T) {
	g := &Guard{}
	called := false
	h := g.Require(Options{AllowAnonymous: true})(okHandler(&called))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/api/products", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRejectsWrongRole(t *testing.T) {
	g := &Guard{}
	called := false
	h := g.Admin(okHandler(&called))

	req := httptest.NewRequest("PUT", "/api/admin/orders", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{
		ID: "u1", Email: "u1@example.com", Role: models.RoleUser,
	}))

	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRequireAllowsMatchingRole(t *testing.T) {
	g := &Guard{}
	called := false
	h := g.Admin(okHandler(&called))

	req := httptest.NewRequest("PUT", "/api/admin/orders", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{
		ID: "a1", Role: models.RoleAdmin,
	}))

	rec := httptest.NewRecorder()
	h(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCanAccessResource(t *testing.T) {
	admin := &Principal{ID: "a1", Role: models.RoleAdmin}
	owner := &Principal{ID: "u1", Role: models.RoleUser}
	other := &Principal{ID: "u2", Role: models.RoleUser}

	assert.True(t, CanAccessResource(admin, "u1"))
	assert.True(t, CanAccessResource(owner, "u1"))
	assert.False(t, CanAccessResource(other, "u1"))
	assert.False(t, CanAccessResource(nil, "u1"))
}
