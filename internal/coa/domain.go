// Package coa holds the chart of accounts: account groups and the ledgers
// vouchers post against.
package coa

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/shared"
)

// Nature classifies an account group.
type Nature string

const (
	NatureAsset     Nature = "asset"
	NatureLiability Nature = "liability"
	NatureIncome    Nature = "income"
	NatureExpense   Nature = "expense"
	NatureEquity    Nature = "equity"
)

// Valid reports whether n is a known nature.
func (n Nature) Valid() bool {
	switch n {
	case NatureAsset, NatureLiability, NatureIncome, NatureExpense, NatureEquity:
		return true
	}
	return false
}

// NormalBalance is the side on which a group of this nature usually carries its balance.
func (n Nature) NormalBalance() BalanceType {
	if n == NatureAsset || n == NatureExpense {
		return BalanceDebit
	}
	return BalanceCredit
}

// BalanceType is the normal side of a ledger.
type BalanceType string

const (
	BalanceDebit  BalanceType = "debit"
	BalanceCredit BalanceType = "credit"
)

// AccountGroup is a node in the chart of accounts.
type AccountGroup struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"group_code"`
	Name               string    `json:"name"`
	Nature             Nature    `json:"nature"`
	AffectsGrossProfit bool      `json:"affects_gross_profit"`
	ParentID           *int64    `json:"parent_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Ledger is a postable account.
type Ledger struct {
	ID             int64
	Name           string
	Code           string
	GroupID        int64
	GroupCode      string
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	BalanceType    BalanceType
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Delta returns the signed change a debit/credit pair causes to the ledger
// balance: debit minus credit on debit-normal ledgers, the reverse otherwise.
func (l Ledger) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	return SignedDelta(l.BalanceType, debit, credit)
}

// SignedDelta is Ledger.Delta for callers that only hold the balance type.
func SignedDelta(bt BalanceType, debit, credit decimal.Decimal) decimal.Decimal {
	if bt == BalanceCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// LedgerFilter narrows ListLedgers.
type LedgerFilter struct {
	GroupCode string
	Active    *bool
	Query     string
}

var (
	// ErrGroupNotFound indicates an unknown group code.
	ErrGroupNotFound = fmt.Errorf("coa: account group %w", shared.ErrNotFound)
	// ErrLedgerNotFound indicates an unknown ledger id.
	ErrLedgerNotFound = fmt.Errorf("coa: ledger %w", shared.ErrNotFound)
	// ErrInvalidCode indicates an empty or malformed group code.
	ErrInvalidCode = errors.New("coa: group code required")
)
