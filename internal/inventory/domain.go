package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// Direction tells whether a movement adds or removes stock.
type Direction string

const (
	// DirectionIn represents an inbound movement (purchase).
	DirectionIn Direction = "in"
	// DirectionOut represents an outbound movement (sale).
	DirectionOut Direction = "out"
)

// Item is a stock keeping unit valued at weighted average cost.
type Item struct {
	ID             int64
	Code           string
	Name           string
	Unit           string
	OpeningBalance decimal.Decimal
	QuantityOnHand decimal.Decimal
	AvgCost        decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Position returns the item's current stock position.
func (i Item) Position() Position {
	return Position{Quantity: i.QuantityOnHand, AvgCost: i.AvgCost}
}

// Value is quantity on hand at average cost, rounded to currency precision.
func (i Item) Value() decimal.Decimal {
	return money.Round2(i.QuantityOnHand.Mul(i.AvgCost))
}

// Position is a quantity and average cost pair.
type Position struct {
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// Equal compares both components numerically.
func (p Position) Equal(o Position) bool {
	return p.Quantity.Equal(o.Quantity) && p.AvgCost.Equal(o.AvgCost)
}

// Movement records one stock change together with the position on either side of it.
type Movement struct {
	ItemID    int64
	Direction Direction
	Quantity  decimal.Decimal
	// Rate is the purchase rate for inbound movements and the cost basis for outbound ones.
	Rate    decimal.Decimal
	Before  Position
	After   Position
	Warning string
}

// StockCardEntry is one row of an item's movement history.
type StockCardEntry struct {
	VoucherID     int64           `json:"voucher_id"`
	VoucherNumber string          `json:"voucher_number"`
	VoucherType   string          `json:"voucher_type"`
	EntryKind     string          `json:"entry_kind"`
	Date          time.Time       `json:"date"`
	Direction     Direction       `json:"direction"`
	QtyIn         decimal.Decimal `json:"qty_in"`
	QtyOut        decimal.Decimal `json:"qty_out"`
	Rate          decimal.Decimal `json:"rate"`
	BalanceQty    decimal.Decimal `json:"balance_qty"`
	BalanceCost   decimal.Decimal `json:"balance_avg_cost"`
}

// StockCardFilter filters card entries.
type StockCardFilter struct {
	ItemID int64
	From   time.Time
	To     time.Time
	Limit  int
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Active *bool
	Query  string
}

var (
	// ErrItemNotFound indicates an unknown item id.
	ErrItemNotFound = fmt.Errorf("inventory: item %w", shared.ErrNotFound)
	// ErrInsufficientStock is returned when an outbound movement exceeds stock on hand.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", shared.ErrRuleViolation)
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be positive: %w", shared.ErrValidation)
	// ErrInvalidRate indicates a negative rate.
	ErrInvalidRate = fmt.Errorf("inventory: rate must be >= 0: %w", shared.ErrValidation)
	// ErrFilterRequired indicates a stock card request without an item.
	ErrFilterRequired = errors.New("inventory: item required")
)

// InsufficientStockError reports the shortfall for one item.
type InsufficientStockError struct {
	ItemID    int64
	OnHand    decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: item %d has %s on hand, %s requested", e.ItemID, e.OnHand.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ProblemFields exposes the shortfall to HTTP problem responses.
func (e *InsufficientStockError) ProblemFields() map[string]any {
	return map[string]any{
		"item_id":   e.ItemID,
		"on_hand":   e.OnHand.StringFixed(money.QuantityScale),
		"requested": e.Requested.StringFixed(money.QuantityScale),
	}
}
