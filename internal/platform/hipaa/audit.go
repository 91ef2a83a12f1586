package hipaa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportAudit is one row of the export audit trail: which run produced an
// export, under which privacy level, and with what outcome. It carries
// counts only, never patient data, so the trail itself is safe to retain.
type ExportAudit struct {
	ID            uuid.UUID `json:"id"`
	RunID         uuid.UUID `json:"run_id"`
	PrivacyLevel  string    `json:"privacy_level"`
	DocumentCount int       `json:"document_count"`
	Outcome       string    `json:"outcome"` // "success" or "failure"
	Detail        string    `json:"detail,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}

// applyDefaults fills the identifier, outcome, and timestamps when the
// caller left them zero.
func (e *ExportAudit) applyDefaults(now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Outcome == "" {
		e.Outcome = "success"
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = now
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = now
	}
}

// AuditLogger writes export audit rows to the export_audit table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger creates an AuditLogger backed by the given connection pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// RecordExport inserts one audit row for a completed conversion run.
func (a *AuditLogger) RecordExport(ctx context.Context, event *ExportAudit) error {
	event.applyDefaults(time.Now().UTC())

	const query = `
		INSERT INTO export_audit (
			id, run_id, privacy_level, document_count,
			outcome, detail, started_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := a.pool.Exec(ctx, query,
		event.ID, event.RunID, event.PrivacyLevel, event.DocumentCount,
		event.Outcome, event.Detail,
		event.StartedAt, event.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("hipaa audit: record export: %w", err)
	}
	return nil
}
