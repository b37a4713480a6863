// Package vouchers implements the voucher lifecycle: drafting, balance
// validation, posting to ledgers and stock, and cancellation by compensating
// entries.
package vouchers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/money"
)

// Type enumerates voucher types.
type Type string

const (
	TypeSalesInvoice    Type = "sales_invoice"
	TypePurchaseInvoice Type = "purchase_invoice"
	TypePayment         Type = "payment"
	TypeReceipt         Type = "receipt"
	TypeJournal         Type = "journal"
	TypeContra          Type = "contra"
)

var typePrefixes = map[Type]string{
	TypeSalesInvoice:    "SI",
	TypePurchaseInvoice: "PI",
	TypePayment:         "PMT",
	TypeReceipt:         "RCT",
	TypeJournal:         "JV",
	TypeContra:          "CTR",
}

// Types lists every voucher type in display order.
func Types() []Type {
	return []Type{TypeSalesInvoice, TypePurchaseInvoice, TypePayment, TypeReceipt, TypeJournal, TypeContra}
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := typePrefixes[t]
	return ok
}

// Prefix is the voucher number prefix for t.
func (t Type) Prefix() string {
	return typePrefixes[t]
}

// StockDirection returns the stock movement a type causes, if any.
func (t Type) StockDirection() (inventory.Direction, bool) {
	switch t {
	case TypeSalesInvoice:
		return inventory.DirectionOut, true
	case TypePurchaseInvoice:
		return inventory.DirectionIn, true
	}
	return "", false
}

// FormatNumber renders the voucher number for a sequence value.
func FormatNumber(t Type, seq int64) string {
	return fmt.Sprintf("%s-%06d", t.Prefix(), seq)
}

// Status is the voucher lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPosted    Status = "posted"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPosted || s == StatusCancelled
}

// EntryKind separates posted rows from their compensating reversals.
type EntryKind string

const (
	KindOriginal EntryKind = "original"
	KindReversal EntryKind = "reversal"
)

// Voucher is a transaction document.
type Voucher struct {
	ID            int64
	Number        string
	Type          Type
	Sequence      int64
	Date          time.Time
	Status        Status
	TotalAmount   decimal.Decimal
	PartyLedgerID *int64
	Narration     string
	Reference     string
	CreatedBy     int64
	PostedAt      *time.Time
	CancelledAt   *time.Time
	CancelDate    *time.Time
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Lines as entered on the document.
	Entries []EntryLine
	Items   []ItemLine

	// Rows written by posting and cancellation.
	LedgerEntries  []LedgerEntry
	StockMovements []StockMovement
}

// EntryLine is one ledger line of a voucher document.
type EntryLine struct {
	LineNo   int
	LedgerID int64
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// ItemLine is one stock line of a sales or purchase invoice.
type ItemLine struct {
	LineNo   int
	ItemID   int64
	Quantity decimal.Decimal
	Rate     decimal.Decimal
}

// Amount is quantity times rate at currency precision.
func (l ItemLine) Amount() decimal.Decimal {
	return money.Round2(l.Quantity.Mul(l.Rate))
}

// LedgerEntry is an immutable posted row against one ledger.
type LedgerEntry struct {
	ID              int64
	VoucherID       int64
	LedgerID        int64
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	Kind            EntryKind
	ReversesEntryID *int64
	EntryDate       time.Time
	CreatedAt       time.Time
}

// StockMovement is a posted stock change with the item position around it.
type StockMovement struct {
	ID        int64
	VoucherID int64
	ItemID    int64
	Kind      EntryKind
	Direction inventory.Direction
	Quantity  decimal.Decimal
	Rate      decimal.Decimal
	Amount    decimal.Decimal
	Before    inventory.Position
	After     inventory.Position
	Date      time.Time
}

func (m StockMovement) movement() inventory.Movement {
	return inventory.Movement{
		ItemID:    m.ItemID,
		Direction: m.Direction,
		Quantity:  m.Quantity,
		Rate:      m.Rate,
		Before:    m.Before,
		After:     m.After,
	}
}

// DraftInput carries the fields of a new or edited draft.
type DraftInput struct {
	Type           Type
	Date           time.Time
	PartyLedgerID  *int64
	Narration      string
	Reference      string
	Entries        []EntryInput
	Items          []ItemInput
	ActorID        int64
	IdempotencyKey string
}

// EntryInput is one requested ledger line.
type EntryInput struct {
	LedgerID int64
	Debit    decimal.Decimal
	Credit   decimal.Decimal
}

// ItemInput is one requested stock line.
type ItemInput struct {
	ItemID   int64
	Quantity decimal.Decimal
	Rate     decimal.Decimal
}

// CancelInput describes a cancellation request. A zero Date means today.
type CancelInput struct {
	VoucherID int64
	Date      time.Time
	Reason    string
	ActorID   int64
}

// PostResult is a posted or cancelled voucher plus any policy warnings.
type PostResult struct {
	Voucher  Voucher
	Warnings []string
}

// Totals are the debit and credit sums of a set of lines.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Balanced reports whether the totals agree at currency precision.
func (t Totals) Balanced() bool {
	return money.Round2(t.Debit).Equal(money.Round2(t.Credit))
}

// ListFilter narrows List.
type ListFilter struct {
	Status        Status
	Type          Type
	PartyLedgerID int64
	From          time.Time
	To            time.Time
	Query         string
	Sort          string
	Page          int
	PerPage       int
}

var sortColumns = map[string]string{
	"date":    "v.voucher_date ASC, v.id ASC",
	"-date":   "v.voucher_date DESC, v.id DESC",
	"number":  "v.voucher_number ASC",
	"-number": "v.voucher_number DESC",
	"amount":  "v.total_amount ASC, v.id ASC",
	"-amount": "v.total_amount DESC, v.id DESC",
}

// DefaultSort is applied when the requested sort is empty.
const DefaultSort = "-date"

// ValidSort reports whether sort is accepted by List.
func ValidSort(sort string) bool {
	_, ok := sortColumns[sort]
	return ok
}
