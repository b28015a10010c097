package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		action   string
		category Category
		severity Severity
	}{
		{"VIEW_ORDERS", CategoryDataAccess, SeverityLow},
		{"FETCH_PRODUCT", CategoryDataAccess, SeverityLow},
		{"CREATE_ORDER", CategoryDataModification, SeverityMedium},
		{"UPDATE_ORDER", CategoryDataModification, SeverityMedium},
		{"DELETE_ORDERS", CategoryDataModification, SeverityMedium},
		{"LOGIN", CategoryAuthentication, SeverityLow},
		{"LOGIN_FAILED", CategoryAuthentication, SeverityHigh},
		{"LOGOUT", CategoryAuthentication, SeverityLow},
		{"UNAUTHORIZED_ACCESS", CategoryAuthorization, SeverityHigh},
		{"FORBIDDEN_ROLE", CategoryAuthorization, SeverityHigh},
		{"ORDER_ERROR", CategorySecurity, SeverityMedium},
		{"SOMETHING_ELSE", CategorySystem, SeverityLow},
		// ADMIN/BULK forces severity high without touching category.
		{"ADMIN_UPDATE_ORDER", CategoryDataModification, SeverityHigh},
		{"BULK_UPDATE_ORDERS", CategoryDataModification, SeverityHigh},
		{"ADMIN_DASHBOARD", CategorySystem, SeverityHigh},
		// Raise-only merge: data-access LOW cannot lower an earlier MEDIUM.
		{"VIEW_FAILED", CategoryDataAccess, SeverityMedium},
	}

	for _, tc := range tests {
		category, severity := Classify(tc.action)
		assert.Equal(t, tc.category, category, "category for %s", tc.action)
		assert.Equal(t, tc.severity, severity, "severity for %s", tc.action)
	}
}

type memWriter struct {
	mu      sync.Mutex
	entries []Entry
	fail    error
}

func (w *memWriter) InsertAuditEntry(_ context.Context, e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *memWriter) DeleteAuditEntriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.entries[:0]
	var n int64
	for _, e := range w.entries {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	w.entries = kept
	return n, nil
}

func (w *memWriter) all() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Entry(nil), w.entries...)
}

func TestRecordPersistsWithRequestContext(t *testing.T) {
	w := &memWriter{}
	rec := NewRecorder(w, 16, 0)

	req := httptest.NewRequest("POST", "/api/orders", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	rec.Record(Event{
		UserID:    "u1",
		UserEmail: "u1@example.com",
		Action:    "CREATE_ORDER",
		Resource:  "orders",
		Success:   true,
		Request:   req,
		Details:   map[string]any{"total": "2625"},
	})
	rec.drain()

	entries := w.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "203.0.113.9", e.IPAddress)
	assert.Equal(t, "test-agent", e.UserAgent)
	assert.Equal(t, CategoryDataModification, e.Category)
	assert.Equal(t, SeverityMedium, e.Severity)
	assert.True(t, e.Success)
}

func TestClientIPPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded first hop wins", "203.0.113.9, 10.0.0.1", "192.0.2.7", "10.0.0.2:443", "203.0.113.9"},
		{"single forwarded entry", " 203.0.113.9 ", "", "10.0.0.2:443", "203.0.113.9"},
		{"real ip when no forwarded", "", "192.0.2.7", "10.0.0.2:443", "192.0.2.7"},
		{"remote addr host fallback", "", "", "10.0.0.2:443", "10.0.0.2"},
		{"bare remote addr", "", "", "10.0.0.2", "10.0.0.2"},
		{"no origin at all", "", "", "", "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}

	assert.Equal(t, "unknown", ClientIP(nil))
}

func TestRecordWithoutRequestUsesUnknown(t *testing.T) {
	w := &memWriter{}
	rec := NewRecorder(w, 16, 0)

	rec.Record(Event{Action: "SYSTEM_TICK", Resource: "system", Success: true})
	rec.drain()

	entries := w.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].IPAddress)
	assert.Equal(t, "unknown", entries[0].UserAgent)
}

func TestRecordNeverBlocksWhenQueueFull(t *testing.T) {
	w := &memWriter{}
	rec := NewRecorder(w, 1, 0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			rec.Record(Event{Action: "VIEW_ORDERS", Resource: "orders", Success: true})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	w := &memWriter{fail: errors.New("disk full")}
	rec := NewRecorder(w, 16, 0)

	assert.NotPanics(t, func() {
		rec.Record(Event{Action: "BULK_UPDATE_ORDERS", Resource: "orders"})
		rec.drain()
	})
}

func TestPruneExpired(t *testing.T) {
	w := &memWriter{}
	now := time.Now()
	w.entries = []Entry{
		{ID: "old", CreatedAt: now.Add(-91 * 24 * time.Hour)},
		{ID: "new", CreatedAt: now.Add(-time.Hour)},
	}

	rec := NewRecorder(w, 1, 90*24*time.Hour)
	rec.pruneExpired(context.Background())

	entries := w.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ID)
}
