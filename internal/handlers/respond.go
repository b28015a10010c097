package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/sanitize"
)

// maxBodyBytes bounds request bodies; order payloads are small.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": apperr.MessageOf(err),
		"code":    string(apperr.CodeOf(err)),
	})
}

// decodeJSON reads the body, sanitizes every string in it, and binds the
// result to dst. Sanitizing the generic tree before binding means no typed
// field ever sees raw angle brackets or padding whitespace.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return apperr.Invalid("invalid JSON body")
	}
	cleaned, err := json.Marshal(sanitize.Clean(raw))
	if err != nil {
		return apperr.Invalid("invalid JSON body")
	}
	if err := json.Unmarshal(cleaned, dst); err != nil {
		return apperr.Invalid("request body does not match expected shape")
	}
	return nil
}
