package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/platform/db"
	jobmetrics "github.com/bahikhata/bahikhata/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	checkUnbalancedVoucher = "unbalanced_voucher"
	checkBalanceDrift      = "balance_drift"
)

// UnbalancedVoucher is a posted or cancelled voucher whose entries do not net to zero.
type UnbalancedVoucher struct {
	VoucherID   int64
	Number      string
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

// BalanceDrift is a ledger whose cached balance differs from the fold of its entries.
type BalanceDrift struct {
	LedgerID int64
	Name     string
	Cached   decimal.Decimal
	Folded   decimal.Decimal
}

// IntegrityReport summarises one scan.
type IntegrityReport struct {
	Unbalanced []UnbalancedVoucher
	Drift      []BalanceDrift
}

// Clean reports whether the scan found nothing.
func (r IntegrityReport) Clean() bool {
	return len(r.Unbalanced) == 0 && len(r.Drift) == 0
}

// IntegrityStore reads the data both checks run against.
type IntegrityStore interface {
	UnbalancedVouchers(ctx context.Context) ([]UnbalancedVoucher, error)
	BalanceDrift(ctx context.Context, ledgerID int64) ([]BalanceDrift, error)
}

// LedgerIntegrityJob verifies that every posted voucher balances and that
// each cached ledger balance equals its opening balance plus its entries.
type LedgerIntegrityJob struct {
	Store   IntegrityStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	report, err := j.Run(ctx, payload.LedgerID)
	if err != nil {
		return tracker.End(err)
	}
	if !report.Clean() {
		err = fmt.Errorf("ledger integrity: %d unbalanced vouchers, %d drifting ledgers: %w",
			len(report.Unbalanced), len(report.Drift), asynq.SkipRetry)
	}
	return tracker.End(err)
}

// Run executes both checks and records findings.
func (j *LedgerIntegrityJob) Run(ctx context.Context, ledgerID int64) (IntegrityReport, error) {
	logger := j.logger()
	start := time.Now()

	var report IntegrityReport
	unbalanced, err := j.Store.UnbalancedVouchers(ctx)
	if err != nil {
		return report, fmt.Errorf("ledger integrity: vouchers: %w", err)
	}
	drift, err := j.Store.BalanceDrift(ctx, ledgerID)
	if err != nil {
		return report, fmt.Errorf("ledger integrity: balances: %w", err)
	}
	report.Unbalanced = unbalanced
	report.Drift = drift

	for _, v := range unbalanced {
		logger.Error("unbalanced voucher",
			slog.Int64("voucher_id", v.VoucherID), slog.String("number", v.Number),
			slog.String("debit_total", v.DebitTotal.StringFixed(2)), slog.String("credit_total", v.CreditTotal.StringFixed(2)))
	}
	for _, d := range drift {
		logger.Error("ledger balance drift",
			slog.Int64("ledger_id", d.LedgerID), slog.String("ledger", d.Name),
			slog.String("cached", d.Cached.StringFixed(2)), slog.String("folded", d.Folded.StringFixed(2)))
	}
	j.metrics().AddIntegrityViolations(checkUnbalancedVoucher, len(unbalanced))
	j.metrics().AddIntegrityViolations(checkBalanceDrift, len(drift))

	logger.Info("ledger integrity scan complete",
		slog.Int("unbalanced", len(unbalanced)), slog.Int("drift", len(drift)), slog.Duration("duration", time.Since(start)))
	return report, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default()
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// PGIntegrityStore runs the integrity queries against PostgreSQL.
type PGIntegrityStore struct {
	pool *pgxpool.Pool
}

// NewIntegrityStore builds a PostgreSQL-backed IntegrityStore.
func NewIntegrityStore(pool *pgxpool.Pool) *PGIntegrityStore {
	return &PGIntegrityStore{pool: pool}
}

const unbalancedQuery = `
SELECT v.id, v.voucher_number,
       COALESCE(SUM(e.debit_amount), 0), COALESCE(SUM(e.credit_amount), 0)
FROM vouchers v
LEFT JOIN voucher_ledger_entries e ON e.voucher_id = v.id
WHERE v.status IN ('posted', 'cancelled')
GROUP BY v.id, v.voucher_number
HAVING COALESCE(SUM(e.debit_amount), 0) <> COALESCE(SUM(e.credit_amount), 0)
    OR COUNT(e.id) = 0
ORDER BY v.id`

// UnbalancedVouchers lists non-draft vouchers whose entries do not balance.
func (s *PGIntegrityStore) UnbalancedVouchers(ctx context.Context) ([]UnbalancedVoucher, error) {
	var out []UnbalancedVoucher
	err := db.WithReadTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, unbalancedQuery)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v UnbalancedVoucher
			if err := rows.Scan(&v.VoucherID, &v.Number, &v.DebitTotal, &v.CreditTotal); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

const driftQuery = `
SELECT l.id, l.ledger_name, l.current_balance,
       l.opening_balance + COALESCE(SUM(
           CASE WHEN l.balance_type = 'debit'
                THEN e.debit_amount - e.credit_amount
                ELSE e.credit_amount - e.debit_amount END), 0) AS folded
FROM ledgers l
LEFT JOIN voucher_ledger_entries e ON e.ledger_id = l.id
WHERE ($1::bigint = 0 OR l.id = $1)
GROUP BY l.id, l.ledger_name, l.current_balance, l.opening_balance, l.balance_type
HAVING l.current_balance <> l.opening_balance + COALESCE(SUM(
           CASE WHEN l.balance_type = 'debit'
                THEN e.debit_amount - e.credit_amount
                ELSE e.credit_amount - e.debit_amount END), 0)
ORDER BY l.id`

// BalanceDrift lists ledgers whose cached balance disagrees with their entries.
func (s *PGIntegrityStore) BalanceDrift(ctx context.Context, ledgerID int64) ([]BalanceDrift, error) {
	var out []BalanceDrift
	err := db.WithReadTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, driftQuery, ledgerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d BalanceDrift
			if err := rows.Scan(&d.LedgerID, &d.Name, &d.Cached, &d.Folded); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}
