package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the chart of accounts.
type Repository interface {
	GetGroup(ctx context.Context, code string) (AccountGroup, error)
	ListGroups(ctx context.Context) ([]AccountGroup, error)
	GetLedger(ctx context.Context, id int64) (Ledger, error)
	ListLedgers(ctx context.Context, filter LedgerFilter) ([]Ledger, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const groupColumns = `id, group_code, name, nature, affects_gross_profit, parent_id, created_at, updated_at`

const ledgerSelect = `SELECT ` + LedgerColumns + `
FROM ledgers l
JOIN account_groups g ON g.id = l.account_group_id`

func (r *repository) GetGroup(ctx context.Context, code string) (AccountGroup, error) {
	row := r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM account_groups WHERE group_code = $1`, code)
	g, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountGroup{}, ErrGroupNotFound
	}
	return g, err
}

func (r *repository) ListGroups(ctx context.Context) ([]AccountGroup, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM account_groups ORDER BY group_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []AccountGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *repository) GetLedger(ctx context.Context, id int64) (Ledger, error) {
	l, err := ScanLedger(r.db.QueryRow(ctx, ledgerSelect+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Ledger{}, ErrLedgerNotFound
	}
	return l, err
}

func (r *repository) ListLedgers(ctx context.Context, filter LedgerFilter) ([]Ledger, error) {
	rows, err := r.db.Query(ctx, ledgerSelect+`
WHERE ($1 = '' OR g.group_code = $1)
  AND ($2::boolean IS NULL OR l.is_active = $2)
  AND ($3 = '' OR l.ledger_name ILIKE '%' || $3 || '%' OR l.ledger_code ILIKE '%' || $3 || '%')
ORDER BY l.ledger_name, l.id`, filter.GroupCode, filter.Active, filter.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ledgers []Ledger
	for rows.Next() {
		l, err := ScanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, rows.Err()
}

func scanGroup(row pgx.Row) (AccountGroup, error) {
	var g AccountGroup
	err := row.Scan(&g.ID, &g.Code, &g.Name, &g.Nature, &g.AffectsGrossProfit, &g.ParentID, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// LedgerColumns lists the columns ScanLedger expects, aliased l for ledgers
// and g for account_groups.
const LedgerColumns = `l.id, l.ledger_name, l.ledger_code, l.account_group_id, g.group_code,
	l.opening_balance, l.current_balance, l.balance_type, l.is_active, l.created_at, l.updated_at`

// ScanLedger reads one row selected with LedgerColumns.
func ScanLedger(row pgx.Row) (Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.GroupID, &l.GroupCode,
		&l.OpeningBalance, &l.CurrentBalance, &l.BalanceType, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}
