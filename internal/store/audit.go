package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
)

// InsertAuditEntry persists one append-only audit record.
func (s *Store) InsertAuditEntry(ctx context.Context, e audit.Entry) error {
	details := "{}"
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		details = string(b)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, user_email, action, resource, resource_id,
			ip_address, user_agent, success, severity, category, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.UserEmail, e.Action, e.Resource, e.ResourceID,
		e.IPAddress, e.UserAgent, e.Success, e.Severity, e.Category, details, e.CreatedAt)
	return err
}

// DeleteAuditEntriesBefore enforces the audit retention window.
func (s *Store) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
