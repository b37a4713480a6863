package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/platform/db"
)

// Repository persists vouchers in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository. lockTimeout bounds row lock waits
// inside each transaction; zero leaves the server default.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("vouchers repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			ms := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
				return err
			}
		}
		return fn(ctx, &txRepository{tx: tx})
	})
}

const voucherColumns = `v.id, v.voucher_number, v.voucher_type, v.sequence_no, v.voucher_date, v.status, v.total_amount,
	v.party_ledger_id, v.narration, v.reference, v.created_by, v.posted_at, v.cancelled_at, v.cancel_date,
	v.cancel_reason, v.created_at, v.updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v         Voucher
		createdBy *int64
	)
	err := row.Scan(&v.ID, &v.Number, &v.Type, &v.Sequence, &v.Date, &v.Status, &v.TotalAmount,
		&v.PartyLedgerID, &v.Narration, &v.Reference, &createdBy, &v.PostedAt, &v.CancelledAt, &v.CancelDate,
		&v.CancelReason, &v.CreatedAt, &v.UpdatedAt)
	if createdBy != nil {
		v.CreatedBy = *createdBy
	}
	return v, err
}

// ListVouchers returns one page of headers and the total match count.
func (r *Repository) ListVouchers(ctx context.Context, f ListFilter) ([]Voucher, int, error) {
	order, ok := sortColumns[f.Sort]
	if !ok {
		order = sortColumns[DefaultSort]
	}
	var from, to any
	if !f.From.IsZero() {
		from = f.From
	}
	if !f.To.IsZero() {
		to = f.To
	}
	where := `
WHERE ($1 = '' OR v.status = $1)
  AND ($2 = '' OR v.voucher_type = $2)
  AND ($3::bigint = 0 OR v.party_ledger_id = $3)
  AND ($4::date IS NULL OR v.voucher_date >= $4)
  AND ($5::date IS NULL OR v.voucher_date <= $5)
  AND ($6 = '' OR v.voucher_number ILIKE '%' || $6 || '%' OR v.narration ILIKE '%' || $6 || '%' OR v.reference ILIKE '%' || $6 || '%')`
	args := []any{string(f.Status), string(f.Type), f.PartyLedgerID, from, to, f.Query}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers v`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (f.Page - 1) * f.PerPage
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers v`+where+`
ORDER BY `+order+` LIMIT $7 OFFSET $8`, append(args, f.PerPage, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *txRepository) NextVoucherNumber(ctx context.Context, t Type) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `UPDATE voucher_sequences SET last_number = last_number + 1
WHERE voucher_type = $1 RETURNING last_number`, string(t)).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("vouchers: no sequence for type %s", t)
	}
	return seq, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (voucher_number, voucher_type, sequence_no, voucher_date, status,
	party_ledger_id, narration, reference, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, total_amount, created_at, updated_at`,
		v.Number, string(v.Type), v.Sequence, v.Date, string(v.Status), v.PartyLedgerID, v.Narration, v.Reference, nullInt(v.CreatedBy),
	).Scan(&v.ID, &v.TotalAmount, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *txRepository) UpdateDraftHeader(ctx context.Context, v Voucher) error {
	_, err := r.tx.Exec(ctx, `UPDATE vouchers SET voucher_date = $2, party_ledger_id = $3, narration = $4, reference = $5, updated_at = NOW()
WHERE id = $1 AND status = 'draft'`, v.ID, v.Date, v.PartyLedgerID, v.Narration, v.Reference)
	return err
}

func (r *txRepository) ReplaceDraftLines(ctx context.Context, voucherID int64, entries []EntryLine, items []ItemLine) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_draft_entries WHERE voucher_id = $1`, voucherID); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_draft_items WHERE voucher_id = $1`, voucherID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO voucher_draft_entries (voucher_id, line_no, ledger_id, debit_amount, credit_amount)
VALUES ($1, $2, $3, $4, $5)`, voucherID, e.LineNo, e.LedgerID, e.Debit, e.Credit)
	}
	for _, it := range items {
		batch.Queue(`INSERT INTO voucher_draft_items (voucher_id, line_no, item_id, quantity, rate)
VALUES ($1, $2, $3, $4, $5)`, voucherID, it.LineNo, it.ItemID, it.Quantity, it.Rate)
	}
	if batch.Len() == 0 {
		return nil
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

func (r *txRepository) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, err
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, err
}

func (r *txRepository) GetDraftLines(ctx context.Context, voucherID int64) ([]EntryLine, []ItemLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT line_no, ledger_id, debit_amount, credit_amount
FROM voucher_draft_entries WHERE voucher_id = $1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, nil, err
	}
	var entries []EntryLine
	for rows.Next() {
		var e EntryLine
		if err := rows.Scan(&e.LineNo, &e.LedgerID, &e.Debit, &e.Credit); err != nil {
			rows.Close()
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = r.tx.Query(ctx, `SELECT line_no, item_id, quantity, rate
FROM voucher_draft_items WHERE voucher_id = $1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var items []ItemLine
	for rows.Next() {
		var it ItemLine
		if err := rows.Scan(&it.LineNo, &it.ItemID, &it.Quantity, &it.Rate); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return entries, items, rows.Err()
}

func (r *txRepository) GetLedgers(ctx context.Context, ids []int64) (map[int64]coa.Ledger, error) {
	return r.ledgers(ctx, ids, "")
}

func (r *txRepository) LockLedgers(ctx context.Context, ids []int64) (map[int64]coa.Ledger, error) {
	return r.ledgers(ctx, ids, " FOR UPDATE OF l")
}

func (r *txRepository) ledgers(ctx context.Context, ids []int64, lock string) (map[int64]coa.Ledger, error) {
	out := make(map[int64]coa.Ledger, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT `+coa.LedgerColumns+`
FROM ledgers l JOIN account_groups g ON g.id = l.account_group_id
WHERE l.id = ANY($1) ORDER BY l.id`+lock, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := coa.ScanLedger(rows)
		if err != nil {
			return nil, err
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

func (r *txRepository) AdjustLedgerBalance(ctx context.Context, ledgerID int64, delta decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledgers SET current_balance = current_balance + $2, updated_at = NOW() WHERE id = $1`, ledgerID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return coa.ErrLedgerNotFound
	}
	return nil
}

func (r *txRepository) GetItems(ctx context.Context, ids []int64) (map[int64]inventory.Item, error) {
	return r.items(ctx, ids, "")
}

func (r *txRepository) LockItems(ctx context.Context, ids []int64) (map[int64]inventory.Item, error) {
	return r.items(ctx, ids, " FOR UPDATE")
}

func (r *txRepository) items(ctx context.Context, ids []int64, lock string) (map[int64]inventory.Item, error) {
	out := make(map[int64]inventory.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT `+inventory.ItemColumns+` FROM inventory_items WHERE id = ANY($1) ORDER BY id`+lock, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := inventory.ScanItem(rows)
		if err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (r *txRepository) UpdateItemStock(ctx context.Context, itemID int64, pos inventory.Position) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_items SET quantity_on_hand = $2, avg_cost = $3, updated_at = NOW() WHERE id = $1`,
		itemID, pos.Quantity, pos.AvgCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

func (r *txRepository) InsertLedgerEntries(ctx context.Context, voucherID int64, entries []LedgerEntry) ([]LedgerEntry, error) {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		e.VoucherID = voucherID
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_ledger_entries (voucher_id, ledger_id, debit_amount, credit_amount, entry_kind, reverses_entry_id, entry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
			voucherID, e.LedgerID, e.Debit, e.Credit, string(e.Kind), e.ReversesEntryID, e.EntryDate,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *txRepository) ListLedgerEntries(ctx context.Context, voucherID int64) ([]LedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, voucher_id, ledger_id, debit_amount, credit_amount, entry_kind, reverses_entry_id, entry_date, created_at
FROM voucher_ledger_entries WHERE voucher_id = $1 ORDER BY id`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.LedgerID, &e.Debit, &e.Credit, &e.Kind, &e.ReversesEntryID, &e.EntryDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertStockMovements(ctx context.Context, voucherID int64, moves []StockMovement) error {
	if len(moves) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range moves {
		batch.Queue(`INSERT INTO voucher_items (voucher_id, item_id, entry_kind, direction, quantity, rate, amount,
	qty_before, avg_cost_before, qty_after, avg_cost_after, movement_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			voucherID, m.ItemID, string(m.Kind), string(m.Direction), m.Quantity, m.Rate, m.Amount,
			m.Before.Quantity, m.Before.AvgCost, m.After.Quantity, m.After.AvgCost, m.Date)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) ListStockMovements(ctx context.Context, voucherID int64) ([]StockMovement, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, voucher_id, item_id, entry_kind, direction, quantity, rate, amount,
	qty_before, avg_cost_before, qty_after, avg_cost_after, movement_date
FROM voucher_items WHERE voucher_id = $1 ORDER BY id`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.VoucherID, &m.ItemID, &m.Kind, &m.Direction, &m.Quantity, &m.Rate, &m.Amount,
			&m.Before.Quantity, &m.Before.AvgCost, &m.After.Quantity, &m.After.AvgCost, &m.Date); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *txRepository) MarkPosted(ctx context.Context, id int64, total decimal.Decimal, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET status = 'posted', total_amount = $2, posted_at = $3, updated_at = $3
WHERE id = $1 AND status = 'draft'`, id, total, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, id int64, date time.Time, reason string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET status = 'cancelled', cancel_date = $2, cancel_reason = $3, cancelled_at = $4, updated_at = $4
WHERE id = $1 AND status = 'posted'`, id, date, reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPosted
	}
	return nil
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
