package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/platform/db"
)

// Repository reads the aggregates reports are built from.
type Repository interface {
	StatusTotals(ctx context.Context) ([]StatusTotal, error)
	TypeStatusTotals(ctx context.Context) ([]TypeStatusTotal, error)
	// LedgerTotals sums rows dated on or before asOf. ledgerID zero selects
	// every ledger.
	LedgerTotals(ctx context.Context, ledgerID int64, asOf time.Time) ([]LedgerTotal, error)
	// Statement returns the ledger's totals before from and its rows dated
	// within [from, to].
	Statement(ctx context.Context, ledgerID int64, from, to time.Time) (LedgerTotal, []StatementLine, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// StatusTotals groups vouchers by status. Draft amounts are excluded.
func (r *PGRepository) StatusTotals(ctx context.Context) ([]StatusTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*),
	COALESCE(SUM(total_amount) FILTER (WHERE status <> 'draft'), 0)
FROM vouchers GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusTotal
	for rows.Next() {
		var t StatusTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.Amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TypeStatusTotals groups vouchers by type and status. Draft amounts are excluded.
func (r *PGRepository) TypeStatusTotals(ctx context.Context) ([]TypeStatusTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT voucher_type, status, COUNT(*),
	COALESCE(SUM(total_amount) FILTER (WHERE status <> 'draft'), 0)
FROM vouchers GROUP BY voucher_type, status ORDER BY voucher_type, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeStatusTotal
	for rows.Next() {
		var t TypeStatusTotal
		if err := rows.Scan(&t.Type, &t.Status, &t.Count, &t.Amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const totalsQuery = `SELECT ` + coa.LedgerColumns + `,
	COALESCE(SUM(e.debit_amount), 0), COALESCE(SUM(e.credit_amount), 0)
FROM ledgers l
JOIN account_groups g ON g.id = l.account_group_id
LEFT JOIN voucher_ledger_entries e ON e.ledger_id = l.id AND e.entry_date <= $2
WHERE ($1::bigint = 0 OR l.id = $1)
GROUP BY l.id, g.group_code
ORDER BY g.group_code, l.ledger_name, l.id`

func scanTotal(row pgx.Row) (LedgerTotal, error) {
	var t LedgerTotal
	l := &t.Ledger
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.GroupID, &l.GroupCode,
		&l.OpeningBalance, &l.CurrentBalance, &l.BalanceType, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
		&t.Debit, &t.Credit)
	return t, err
}

// LedgerTotals implements Repository.
func (r *PGRepository) LedgerTotals(ctx context.Context, ledgerID int64, asOf time.Time) ([]LedgerTotal, error) {
	rows, err := r.pool.Query(ctx, totalsQuery, ledgerID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerTotal
	for rows.Next() {
		t, err := scanTotal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Statement reads the opening totals and rows from one snapshot.
func (r *PGRepository) Statement(ctx context.Context, ledgerID int64, from, to time.Time) (LedgerTotal, []StatementLine, error) {
	var (
		opening LedgerTotal
		lines   []StatementLine
	)
	err := db.WithReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		opening, err = scanTotal(tx.QueryRow(ctx, totalsQuery, ledgerID, from.AddDate(0, 0, -1)))
		if errors.Is(err, pgx.ErrNoRows) {
			return coa.ErrLedgerNotFound
		}
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT e.id, e.entry_date, v.id, v.voucher_number, v.voucher_type, e.entry_kind,
	v.narration, e.debit_amount, e.credit_amount
FROM voucher_ledger_entries e
JOIN vouchers v ON v.id = e.voucher_id
WHERE e.ledger_id = $1 AND e.entry_date BETWEEN $2 AND $3
ORDER BY e.entry_date, e.id`, ledgerID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var l StatementLine
			if err := rows.Scan(&l.EntryID, &l.Date, &l.VoucherID, &l.VoucherNumber, &l.VoucherType, &l.EntryKind,
				&l.Narration, &l.Debit, &l.Credit); err != nil {
				return err
			}
			lines = append(lines, l)
		}
		return rows.Err()
	})
	return opening, lines, err
}
