package vouchers

import (
	"context"
	"strings"
	"time"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// Cancel reverses a posted voucher by appending mirror entries and undoing
// its stock movements. Original rows are never edited.
func (s *Service) Cancel(ctx context.Context, in CancelInput) (PostResult, error) {
	var result PostResult
	err := s.runLocked(ctx, "cancel", func(ctx context.Context, tx TxRepository) error {
		result = PostResult{}
		v, err := tx.GetVoucherForUpdate(ctx, in.VoucherID)
		if err != nil {
			return err
		}
		switch v.Status {
		case StatusCancelled:
			return ErrAlreadyCancelled
		case StatusDraft:
			return ErrNotPosted
		}
		date := s.today()
		if !in.Date.IsZero() {
			date = dateOnly(in.Date)
		}
		if date.Before(v.Date) {
			verr := &ValidationError{}
			verr.add(0, "cancel_date", "cannot precede the voucher date")
			return verr
		}

		posted, err := tx.ListLedgerEntries(ctx, v.ID)
		if err != nil {
			return err
		}
		originals := make([]LedgerEntry, 0, len(posted))
		ids := make([]int64, 0, len(posted))
		for _, e := range posted {
			if e.Kind == KindOriginal {
				originals = append(originals, e)
				ids = append(ids, e.LedgerID)
			}
		}
		ledgers, err := tx.LockLedgers(ctx, shared.LockOrder(ids))
		if err != nil {
			return err
		}
		reversals := make([]LedgerEntry, 0, len(originals))
		for _, e := range originals {
			if _, ok := ledgers[e.LedgerID]; !ok {
				return coa.ErrLedgerNotFound
			}
			origID := e.ID
			reversals = append(reversals, LedgerEntry{
				VoucherID:       v.ID,
				LedgerID:        e.LedgerID,
				Debit:           e.Credit,
				Credit:          e.Debit,
				Kind:            KindReversal,
				ReversesEntryID: &origID,
				EntryDate:       date,
			})
		}
		written, err := tx.InsertLedgerEntries(ctx, v.ID, reversals)
		if err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, ledgers, written); err != nil {
			return err
		}

		moves, warnings, err := s.reverseStock(ctx, tx, v.ID, date)
		if err != nil {
			return err
		}
		result.Warnings = warnings

		now := s.now()
		reason := strings.TrimSpace(in.Reason)
		if err := tx.MarkCancelled(ctx, v.ID, date, reason, now); err != nil {
			return err
		}
		v.Status = StatusCancelled
		v.CancelledAt = &now
		v.CancelDate = &date
		v.CancelReason = reason
		v.LedgerEntries = append(posted, written...)
		v.StockMovements = moves
		result.Voucher = v
		return nil
	})
	if err != nil {
		return PostResult{}, err
	}
	s.record(ctx, in.ActorID, "voucher.cancel", result.Voucher, map[string]any{
		"reason":      result.Voucher.CancelReason,
		"cancel_date": result.Voucher.CancelDate.Format("2006-01-02"),
	})
	s.invalidate(ctx)
	return result, nil
}

// reverseStock undoes original movements last-first so that each reversal
// sees the position its movement left behind.
func (s *Service) reverseStock(ctx context.Context, tx TxRepository, voucherID int64, date time.Time) ([]StockMovement, []string, error) {
	recorded, err := tx.ListStockMovements(ctx, voucherID)
	if err != nil {
		return nil, nil, err
	}
	var originals []StockMovement
	ids := []int64{}
	for _, m := range recorded {
		if m.Kind == KindOriginal {
			originals = append(originals, m)
			ids = append(ids, m.ItemID)
		}
	}
	if len(originals) == 0 {
		return nil, nil, nil
	}
	ordered := shared.LockOrder(ids)
	stock, err := tx.LockItems(ctx, ordered)
	if err != nil {
		return nil, nil, err
	}
	positions := make(map[int64]inventory.Position, len(stock))
	for id, item := range stock {
		positions[id] = item.Position()
	}

	var warnings []string
	moves := make([]StockMovement, 0, len(originals))
	for i := len(originals) - 1; i >= 0; i-- {
		orig := originals[i]
		current, ok := positions[orig.ItemID]
		if !ok {
			return nil, nil, inventory.ErrItemNotFound
		}
		var m inventory.Movement
		if orig.Direction == inventory.DirectionIn {
			m, err = inventory.ReverseInbound(orig.ItemID, current, orig.movement(), s.policy)
		} else {
			m, err = inventory.ReverseOutbound(orig.ItemID, current, orig.movement())
		}
		if err != nil {
			return nil, nil, err
		}
		if m.Warning != "" {
			warnings = append(warnings, m.Warning)
		}
		positions[orig.ItemID] = m.After
		amount := money.Round2(m.Quantity.Mul(m.Rate))
		moves = append(moves, newStockMovement(voucherID, KindReversal, m, amount, date))
	}
	if err := persistStock(ctx, tx, voucherID, moves, positions, ordered); err != nil {
		return nil, nil, err
	}
	return moves, warnings, nil
}
