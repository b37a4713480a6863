package vouchers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListVouchers(ctx context.Context, filter ListFilter) ([]Voucher, int, error)
}

// TxRepository exposes the operations available inside one transaction.
type TxRepository interface {
	NextVoucherNumber(ctx context.Context, t Type) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	UpdateDraftHeader(ctx context.Context, v Voucher) error
	ReplaceDraftLines(ctx context.Context, voucherID int64, entries []EntryLine, items []ItemLine) error
	DeleteVoucher(ctx context.Context, id int64) error

	GetVoucher(ctx context.Context, id int64) (Voucher, error)
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	GetDraftLines(ctx context.Context, voucherID int64) ([]EntryLine, []ItemLine, error)

	GetLedgers(ctx context.Context, ids []int64) (map[int64]coa.Ledger, error)
	LockLedgers(ctx context.Context, ids []int64) (map[int64]coa.Ledger, error)
	AdjustLedgerBalance(ctx context.Context, ledgerID int64, delta decimal.Decimal) error

	GetItems(ctx context.Context, ids []int64) (map[int64]inventory.Item, error)
	LockItems(ctx context.Context, ids []int64) (map[int64]inventory.Item, error)
	UpdateItemStock(ctx context.Context, itemID int64, pos inventory.Position) error

	InsertLedgerEntries(ctx context.Context, voucherID int64, entries []LedgerEntry) ([]LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, voucherID int64) ([]LedgerEntry, error)
	InsertStockMovements(ctx context.Context, voucherID int64, moves []StockMovement) error
	ListStockMovements(ctx context.Context, voucherID int64) ([]StockMovement, error)

	MarkPosted(ctx context.Context, id int64, total decimal.Decimal, at time.Time) error
	MarkCancelled(ctx context.Context, id int64, date time.Time, reason string, at time.Time) error
}
