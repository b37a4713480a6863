package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID       int64
	Action        string
	Entity        string
	EntityID      string
	CorrelationID uuid.UUID
	Meta          map[string]any
	At            time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.CorrelationID == uuid.Nil {
		log.CorrelationID = uuid.New()
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, correlation_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, nullActor(log.ActorID), log.Action, log.Entity, log.EntityID, log.CorrelationID, metaJSON, log.At)
	return err
}

func nullActor(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
