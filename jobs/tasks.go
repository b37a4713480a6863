package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerIntegrity re-checks posted vouchers and cached balances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup deletes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskReportWarmup fills the report cache for the current day.
	TaskReportWarmup = "reports:warmup"
)

// LedgerIntegrityPayload scopes an integrity scan. Zero LedgerID checks every ledger.
type LedgerIntegrityPayload struct {
	LedgerID int64 `json:"ledger_id,omitempty"`
}

// IdempotencyCleanupPayload sets how old a key must be before deletion.
type IdempotencyCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// ReportWarmupPayload names the as-of date to warm, empty means today.
type ReportWarmupPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewLedgerIntegrityTask builds an integrity scan task.
func NewLedgerIntegrityTask(ledgerID int64) (*asynq.Task, error) {
	return newTask(TaskLedgerIntegrity, LedgerIntegrityPayload{LedgerID: ledgerID})
}

// NewIdempotencyCleanupTask builds a cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{OlderThan: olderThan})
}

// NewReportWarmupTask builds a warmup task.
func NewReportWarmupTask(asOf string) (*asynq.Task, error) {
	return newTask(TaskReportWarmup, ReportWarmupPayload{AsOf: asOf})
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
