package vouchers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
)

// Sum totals the debit and credit sides of entries.
func Sum(entries []EntryLine) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range entries {
		t.Debit = t.Debit.Add(e.Debit)
		t.Credit = t.Credit.Add(e.Credit)
	}
	return t
}

// Validate compares the debit and credit totals after rounding to currency
// precision and returns an *ImbalancedError when they differ.
func Validate(entries []EntryLine) error {
	t := Sum(entries)
	if t.Balanced() {
		return nil
	}
	return &ImbalancedError{DebitTotal: money.Round2(t.Debit), CreditTotal: money.Round2(t.Credit)}
}

// Validate checks a stored voucher's lines and returns their totals.
func (s *Service) Validate(ctx context.Context, id int64) (Totals, error) {
	var totals Totals
	var result error
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetVoucher(ctx, id); err != nil {
			return err
		}
		entries, _, err := tx.GetDraftLines(ctx, id)
		if err != nil {
			return err
		}
		totals = Sum(entries)
		result = Validate(entries)
		return nil
	})
	if err != nil {
		return Totals{}, err
	}
	return totals, result
}
