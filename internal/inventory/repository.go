package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts the read paths the service needs.
type RepositoryPort interface {
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ItemColumns lists the columns ScanItem expects.
const ItemColumns = `id, item_code, item_name, unit, opening_balance, quantity_on_hand, avg_cost, is_active, created_at, updated_at`

// ScanItem reads one row selected with ItemColumns.
func ScanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Code, &it.Name, &it.Unit, &it.OpeningBalance, &it.QuantityOnHand,
		&it.AvgCost, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := ScanItem(r.pool.QueryRow(ctx, `SELECT `+ItemColumns+` FROM inventory_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ItemColumns+` FROM inventory_items
WHERE ($1::boolean IS NULL OR is_active = $1)
  AND ($2 = '' OR item_name ILIKE '%' || $2 || '%' OR item_code ILIKE '%' || $2 || '%')
ORDER BY item_name, id`, filter.Active, filter.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		it, err := ScanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	rows, err := r.pool.Query(ctx, `SELECT vi.voucher_id, v.voucher_number, v.voucher_type, vi.entry_kind, vi.movement_date,
	vi.direction, vi.quantity, vi.rate, vi.qty_after, vi.avg_cost_after
FROM voucher_items vi
JOIN vouchers v ON v.id = vi.voucher_id
WHERE vi.item_id = $1
  AND ($2::date IS NULL OR vi.movement_date >= $2)
  AND ($3::date IS NULL OR vi.movement_date <= $3)
ORDER BY vi.movement_date, vi.id
LIMIT $4`, filter.ItemID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards []StockCardEntry
	for rows.Next() {
		var (
			e   StockCardEntry
			qty decimal.Decimal
		)
		if err := rows.Scan(&e.VoucherID, &e.VoucherNumber, &e.VoucherType, &e.EntryKind, &e.Date,
			&e.Direction, &qty, &e.Rate, &e.BalanceQty, &e.BalanceCost); err != nil {
			return nil, err
		}
		if e.Direction == DirectionIn {
			e.QtyIn = qty
		} else {
			e.QtyOut = qty
		}
		cards = append(cards, e)
	}
	return cards, rows.Err()
}
