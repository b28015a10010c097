package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/ratelimit"
)

func TestDecodeJSONSanitizesStrings(t *testing.T) {
	body := `{"name": "  <b>Panjabi</b>  ", "nested": {"comment": " <script>x "}}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	var dst struct {
		Name   string `json:"name"`
		Nested struct {
			Comment string `json:"comment"`
		} `json:"nested"`
	}
	require.NoError(t, decodeJSON(w, r, &dst))
	assert.Equal(t, "bPanjabi/b", dst.Name)
	assert.Equal(t, "scriptx", dst.Nested.Comment)
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	var dst map[string]any
	err := decodeJSON(w, r, &dst)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestParseProductAction(t *testing.T) {
	patch, err := parseProductAction("set_featured")
	require.NoError(t, err)
	require.NotNil(t, patch.Featured)
	assert.True(t, *patch.Featured)
	assert.Nil(t, patch.Active)

	patch, err = parseProductAction("deactivate")
	require.NoError(t, err)
	require.NotNil(t, patch.Active)
	assert.False(t, *patch.Active)
	assert.Nil(t, patch.Featured)

	_, err = parseProductAction("destroy")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New()
	var hits int
	handler := RateLimit(limiter, 2, time.Minute)(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler(w, r)
		if i < 2 {
			assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Contains(t, w.Body.String(), "RATE_LIMITED")
		}
	}
	assert.Equal(t, 2, hits)

	// A different caller has its own budget.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
