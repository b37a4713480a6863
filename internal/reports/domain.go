// Package reports derives read-only aggregates from posted ledger entries:
// voucher totals by status and type, ledger balances as of a date, the trial
// balance and ledger statements.
package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// StatusTotal counts vouchers in one status. Amount is zero for drafts.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// TypeStatusTotal is StatusTotal split by voucher type.
type TypeStatusTotal struct {
	Type   string          `json:"voucher_type"`
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary bundles both voucher aggregates.
type Summary struct {
	ByStatus        []StatusTotal     `json:"by_status"`
	ByTypeAndStatus []TypeStatusTotal `json:"by_type_and_status"`
}

// LedgerTotal is a ledger with the sums of its posted rows up to a date.
type LedgerTotal struct {
	Ledger coa.Ledger      `json:"ledger"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Balance is the opening balance moved by every summed row, in the ledger's
// normal direction.
func (t LedgerTotal) Balance() decimal.Decimal {
	return t.Ledger.OpeningBalance.Add(t.Ledger.Delta(t.Debit, t.Credit))
}

// LedgerBalance is a ledger balance at the end of a day.
type LedgerBalance struct {
	LedgerID    int64           `json:"ledger_id"`
	LedgerName  string          `json:"ledger_name"`
	BalanceType coa.BalanceType `json:"balance_type"`
	AsOf        time.Time       `json:"as_of"`
	Opening     decimal.Decimal `json:"opening_balance"`
	Debit       decimal.Decimal `json:"debit_total"`
	Credit      decimal.Decimal `json:"credit_total"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalanceLine places one ledger's closing balance on its debit or credit side.
type TrialBalanceLine struct {
	LedgerID   int64           `json:"ledger_id"`
	LedgerCode string          `json:"ledger_code"`
	LedgerName string          `json:"ledger_name"`
	GroupCode  string          `json:"group_code"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
}

// TrialBalance lists every ledger with a non-zero closing balance.
type TrialBalance struct {
	AsOf        time.Time          `json:"as_of"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// Difference is total debit minus total credit. It is non-zero only when the
// opening balances themselves disagree.
func (tb TrialBalance) Difference() decimal.Decimal {
	return tb.TotalDebit.Sub(tb.TotalCredit)
}

// StatementLine is one posted row on a ledger with the running balance after it.
type StatementLine struct {
	EntryID       int64           `json:"entry_id"`
	Date          time.Time       `json:"date"`
	VoucherID     int64           `json:"voucher_id"`
	VoucherNumber string          `json:"voucher_number"`
	VoucherType   string          `json:"voucher_type"`
	EntryKind     string          `json:"entry_kind"`
	Narration     string          `json:"narration"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

// Statement is a ledger's activity between two dates.
type Statement struct {
	Ledger  coa.Ledger      `json:"-"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Opening decimal.Decimal `json:"opening_balance"`
	Lines   []StatementLine `json:"lines"`
	Closing decimal.Decimal `json:"closing_balance"`
}

// ErrInvalidRange indicates a report window whose end precedes its start.
var ErrInvalidRange = fmt.Errorf("reports: to precedes from: %w", shared.ErrValidation)
