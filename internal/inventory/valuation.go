package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
)

// Policy controls how valuation treats stock shortfalls.
type Policy struct {
	AllowNegativeStock bool
}

// ApplyInbound adds qty at rate and recomputes the weighted average cost:
// (oldQty*oldAvg + qty*rate) / (oldQty+qty), rounded to four places.
// When nothing positive was on hand the incoming rate becomes the average.
func ApplyInbound(itemID int64, pos Position, qty, rate decimal.Decimal) (Movement, error) {
	if !qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	if rate.IsNegative() {
		return Movement{}, ErrInvalidRate
	}
	newQty := pos.Quantity.Add(qty)
	var avg decimal.Decimal
	if !pos.Quantity.IsPositive() {
		avg = money.RoundCost(rate)
	} else {
		total := pos.Quantity.Mul(pos.AvgCost).Add(qty.Mul(rate))
		avg = money.RoundCost(total.Div(newQty))
	}
	return Movement{
		ItemID:    itemID,
		Direction: DirectionIn,
		Quantity:  qty,
		Rate:      rate,
		Before:    pos,
		After:     Position{Quantity: newQty, AvgCost: avg},
	}, nil
}

// ApplyOutbound removes qty at the current average cost. The average is left
// unchanged. A shortfall is an InsufficientStockError unless the policy allows
// negative stock, in which case the movement carries a warning.
func ApplyOutbound(itemID int64, pos Position, qty decimal.Decimal, policy Policy) (Movement, error) {
	if !qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	m := Movement{
		ItemID:    itemID,
		Direction: DirectionOut,
		Quantity:  qty,
		Rate:      pos.AvgCost,
		Before:    pos,
		After:     Position{Quantity: pos.Quantity.Sub(qty), AvgCost: pos.AvgCost},
	}
	if m.After.Quantity.IsNegative() {
		if !policy.AllowNegativeStock {
			return Movement{}, &InsufficientStockError{ItemID: itemID, OnHand: pos.Quantity, Requested: qty}
		}
		m.Warning = fmt.Sprintf("item %d goes negative: %s on hand, %s issued", itemID, pos.Quantity.String(), qty.String())
	}
	return m, nil
}

// ReverseInbound undoes a posted purchase. If the item has not moved since,
// the pre-purchase position is restored exactly. Otherwise the purchased
// quantity and value are taken back out of the current position.
func ReverseInbound(itemID int64, current Position, original Movement, policy Policy) (Movement, error) {
	m := Movement{
		ItemID:    itemID,
		Direction: DirectionOut,
		Quantity:  original.Quantity,
		Rate:      original.Rate,
		Before:    current,
	}
	if current.Equal(original.After) {
		m.After = original.Before
	} else {
		newQty := current.Quantity.Sub(original.Quantity)
		avg := current.AvgCost
		if newQty.IsPositive() {
			value := current.Quantity.Mul(current.AvgCost).Sub(original.Quantity.Mul(original.Rate))
			if !value.IsNegative() {
				avg = money.RoundCost(value.Div(newQty))
			}
		}
		m.After = Position{Quantity: newQty, AvgCost: avg}
	}
	if m.After.Quantity.IsNegative() {
		if !policy.AllowNegativeStock {
			return Movement{}, &InsufficientStockError{ItemID: itemID, OnHand: current.Quantity, Requested: original.Quantity}
		}
		m.Warning = fmt.Sprintf("reversing purchase leaves item %d negative", itemID)
	}
	return m, nil
}

// ReverseOutbound undoes a posted sale. If the item has not moved since, the
// pre-sale position is restored exactly. Otherwise the quantity is returned
// to stock at the cost basis it left with.
func ReverseOutbound(itemID int64, current Position, original Movement) (Movement, error) {
	if current.Equal(original.After) {
		return Movement{
			ItemID:    itemID,
			Direction: DirectionIn,
			Quantity:  original.Quantity,
			Rate:      original.Rate,
			Before:    current,
			After:     original.Before,
		}, nil
	}
	return ApplyInbound(itemID, current, original.Quantity, original.Rate)
}
