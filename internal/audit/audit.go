// Package audit records sensitive actions for later security review.
// Recording is fire-and-forget: it never blocks a request and its failures
// never surface to callers.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Category string

const (
	CategoryAuthentication   Category = "authentication"
	CategoryAuthorization    Category = "authorization"
	CategoryDataAccess       Category = "data_access"
	CategoryDataModification Category = "data_modification"
	CategorySystem           Category = "system"
	CategorySecurity         Category = "security"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// classRule classifies an action name by substring convention. Rules run in
// declaration order; each matching rule may set the category, but severity
// only ever goes up. The ordering and the raise-only merge are part of the
// audit contract: entries written by different deployments must classify
// identically.
type classRule struct {
	keywords []string
	category Category // empty leaves category untouched
	severity func(action string) Severity
}

func fixed(s Severity) func(string) Severity {
	return func(string) Severity { return s }
}

var classRules = []classRule{
	{[]string{"ERROR", "FAILED"}, CategorySecurity, fixed(SeverityMedium)},
	{[]string{"LOGIN", "LOGOUT", "SIGNUP"}, CategoryAuthentication, func(action string) Severity {
		if strings.Contains(action, "FAILED") {
			return SeverityHigh
		}
		return SeverityLow
	}},
	{[]string{"UNAUTHORIZED", "FORBIDDEN"}, CategoryAuthorization, fixed(SeverityHigh)},
	{[]string{"CREATE", "UPDATE", "DELETE"}, CategoryDataModification, fixed(SeverityMedium)},
	{[]string{"VIEW", "FETCH"}, CategoryDataAccess, fixed(SeverityLow)},
	{[]string{"ADMIN", "BULK"}, "", fixed(SeverityHigh)},
}

// Classify derives category and severity for an action name.
func Classify(action string) (Category, Severity) {
	category := CategorySystem
	severity := SeverityLow
	for _, r := range classRules {
		matched := false
		for _, kw := range r.keywords {
			if strings.Contains(action, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if r.category != "" {
			category = r.category
		}
		if s := r.severity(action); severityRank[s] > severityRank[severity] {
			severity = s
		}
	}
	return category, severity
}

// Entry is one immutable audit record.
type Entry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId,omitempty"`
	UserEmail  string         `json:"userEmail,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resourceId,omitempty"`
	IPAddress  string         `json:"ipAddress"`
	UserAgent  string         `json:"userAgent"`
	Success    bool           `json:"success"`
	Severity   Severity       `json:"severity"`
	Category   Category       `json:"category"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Writer persists entries and expires old ones.
type Writer interface {
	InsertAuditEntry(ctx context.Context, e Entry) error
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Event is what callers hand to Record. Principal fields may be empty for
// unauthenticated actions; Request may be nil outside an HTTP context.
type Event struct {
	UserID     string
	UserEmail  string
	Action     string
	Resource   string
	ResourceID string
	Success    bool
	Request    *http.Request
	Details    map[string]any
}

type Recorder struct {
	writer    Writer
	queue     chan Entry
	retention time.Duration
	now       func() time.Time
}

func NewRecorder(w Writer, buffer int, retention time.Duration) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		writer:    w,
		queue:     make(chan Entry, buffer),
		retention: retention,
		now:       time.Now,
	}
}

// Record classifies and enqueues an event. It never blocks: if the queue is
// full the entry is dropped with a local warning, matching the contract that
// auditing must not slow or fail business logic.
func (r *Recorder) Record(ev Event) {
	category, severity := Classify(ev.Action)
	entry := Entry{
		ID:         uuid.New().String(),
		UserID:     ev.UserID,
		UserEmail:  ev.UserEmail,
		Action:     ev.Action,
		Resource:   ev.Resource,
		ResourceID: ev.ResourceID,
		IPAddress:  ClientIP(ev.Request),
		UserAgent:  userAgent(ev.Request),
		Success:    ev.Success,
		Severity:   severity,
		Category:   category,
		Details:    ev.Details,
		CreatedAt:  r.now(),
	}

	select {
	case r.queue <- entry:
	default:
		metrics.AuditEventsDropped.Inc()
		slog.Warn("audit queue full, dropping entry", "action", ev.Action)
	}
}

// Run drains the queue and prunes expired entries until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	prune := time.NewTicker(time.Hour)
	defer prune.Stop()

	for {
		select {
		case entry := <-r.queue:
			r.persist(entry)
		case <-prune.C:
			r.pruneExpired(ctx)
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case entry := <-r.queue:
			r.persist(entry)
		default:
			return
		}
	}
}

func (r *Recorder) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.writer.InsertAuditEntry(ctx, entry); err != nil {
		// Swallowed by contract. High-severity losses still go to stderr so
		// security review can spot the gap.
		if severityRank[entry.Severity] >= severityRank[SeverityHigh] {
			fmt.Fprintf(os.Stderr, "audit write failed: action=%s severity=%s err=%v\n",
				entry.Action, entry.Severity, err)
		}
	}
}

func (r *Recorder) pruneExpired(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	cutoff := r.now().Add(-r.retention)
	n, err := r.writer.DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("audit retention prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("pruned expired audit entries", "count", n, "cutoff", cutoff)
	}
}

// ClientIP extracts the request origin, preferring proxy headers over the
// socket address. It is the single source of truth for "who sent this":
// audited origins and rate-limit keys must agree.
func ClientIP(r *http.Request) string {
	if r == nil {
		return "unknown"
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func userAgent(r *http.Request) string {
	if r == nil || r.UserAgent() == "" {
		return "unknown"
	}
	return r.UserAgent()
}
