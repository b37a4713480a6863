package vouchers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// Post commits a draft to the ledgers and stock in one transaction. Any
// failure leaves the voucher in draft with no balance or stock change.
func (s *Service) Post(ctx context.Context, id, actorID int64) (PostResult, error) {
	var result PostResult
	err := s.runLocked(ctx, "post", func(ctx context.Context, tx TxRepository) error {
		result = PostResult{}
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusDraft {
			return ErrNotDraft
		}
		entries, items, err := tx.GetDraftLines(ctx, id)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			verr := &ValidationError{}
			verr.add(0, "entries", "at least one entry is required")
			return verr
		}
		if err := Validate(entries); err != nil {
			return err
		}

		ledgers, err := lockLedgers(ctx, tx, entryLedgerIDs(entries))
		if err != nil {
			return err
		}
		rows := make([]LedgerEntry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, LedgerEntry{
				VoucherID: id,
				LedgerID:  e.LedgerID,
				Debit:     e.Debit,
				Credit:    e.Credit,
				Kind:      KindOriginal,
				EntryDate: v.Date,
			})
		}
		written, err := tx.InsertLedgerEntries(ctx, id, rows)
		if err != nil {
			return err
		}
		if err := applyBalances(ctx, tx, ledgers, written); err != nil {
			return err
		}

		if len(items) > 0 {
			moves, warnings, err := s.applyStock(ctx, tx, v, items)
			if err != nil {
				return err
			}
			result.Warnings = warnings
			v.StockMovements = moves
		}

		total := Sum(entries).Debit
		now := s.now()
		if err := tx.MarkPosted(ctx, id, total, now); err != nil {
			return err
		}
		v.Status = StatusPosted
		v.TotalAmount = total
		v.PostedAt = &now
		v.Entries = entries
		v.Items = items
		v.LedgerEntries = written
		result.Voucher = v
		return nil
	})
	if err != nil {
		return PostResult{}, err
	}
	for _, w := range result.Warnings {
		s.logger.Warn("posted with stock warning", slog.Int64("voucher_id", id), slog.String("warning", w))
	}
	s.record(ctx, actorID, "voucher.post", result.Voucher, map[string]any{
		"total_amount": result.Voucher.TotalAmount.StringFixed(2),
		"warnings":     result.Warnings,
	})
	s.invalidate(ctx)
	return result, nil
}

func entryLedgerIDs(entries []EntryLine) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.LedgerID)
	}
	return ids
}

// lockLedgers locks the ledgers in ascending id order and ensures they can
// still be posted to.
func lockLedgers(ctx context.Context, tx TxRepository, ids []int64) (map[int64]coa.Ledger, error) {
	ordered := shared.LockOrder(ids)
	ledgers, err := tx.LockLedgers(ctx, ordered)
	if err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	for _, id := range ordered {
		l, ok := ledgers[id]
		switch {
		case !ok:
			verr.add(0, "ledger_id", fmt.Sprintf("ledger %d does not exist", id))
		case !l.IsActive:
			verr.add(0, "ledger_id", fmt.Sprintf("ledger %d is inactive", id))
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return ledgers, nil
}

// applyBalances adds each ledger's net signed change, in lock order.
func applyBalances(ctx context.Context, tx TxRepository, ledgers map[int64]coa.Ledger, rows []LedgerEntry) error {
	deltas := make(map[int64]decimal.Decimal, len(ledgers))
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		l := ledgers[r.LedgerID]
		deltas[r.LedgerID] = deltas[r.LedgerID].Add(l.Delta(r.Debit, r.Credit))
		ids = append(ids, r.LedgerID)
	}
	for _, id := range shared.LockOrder(ids) {
		if deltas[id].IsZero() {
			continue
		}
		if err := tx.AdjustLedgerBalance(ctx, id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}

// applyStock values each item line and persists the movements and final positions.
func (s *Service) applyStock(ctx context.Context, tx TxRepository, v Voucher, items []ItemLine) ([]StockMovement, []string, error) {
	direction, ok := v.Type.StockDirection()
	if !ok {
		verr := &ValidationError{}
		verr.add(0, "items", "stock items are only allowed on sales and purchase invoices")
		return nil, nil, verr
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	ordered := shared.LockOrder(ids)
	stock, err := tx.LockItems(ctx, ordered)
	if err != nil {
		return nil, nil, err
	}
	positions := make(map[int64]inventory.Position, len(stock))
	verr := &ValidationError{}
	for _, it := range items {
		item, ok := stock[it.ItemID]
		switch {
		case !ok:
			verr.add(it.LineNo, "item_id", "item does not exist")
		case !item.IsActive:
			verr.add(it.LineNo, "item_id", "item is inactive")
		default:
			positions[it.ItemID] = item.Position()
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, nil, err
	}

	var warnings []string
	moves := make([]StockMovement, 0, len(items))
	for _, it := range items {
		var m inventory.Movement
		if direction == inventory.DirectionIn {
			m, err = inventory.ApplyInbound(it.ItemID, positions[it.ItemID], it.Quantity, it.Rate)
		} else {
			m, err = inventory.ApplyOutbound(it.ItemID, positions[it.ItemID], it.Quantity, s.policy)
		}
		if err != nil {
			return nil, nil, err
		}
		if m.Warning != "" {
			warnings = append(warnings, m.Warning)
		}
		positions[it.ItemID] = m.After
		moves = append(moves, newStockMovement(v.ID, KindOriginal, m, it.Amount(), v.Date))
	}
	if err := persistStock(ctx, tx, v.ID, moves, positions, ordered); err != nil {
		return nil, nil, err
	}
	return moves, warnings, nil
}

func newStockMovement(voucherID int64, kind EntryKind, m inventory.Movement, amount decimal.Decimal, date time.Time) StockMovement {
	return StockMovement{
		VoucherID: voucherID,
		ItemID:    m.ItemID,
		Kind:      kind,
		Direction: m.Direction,
		Quantity:  m.Quantity,
		Rate:      m.Rate,
		Amount:    amount,
		Before:    m.Before,
		After:     m.After,
		Date:      date,
	}
}

func persistStock(ctx context.Context, tx TxRepository, voucherID int64, moves []StockMovement, positions map[int64]inventory.Position, ordered []int64) error {
	if err := tx.InsertStockMovements(ctx, voucherID, moves); err != nil {
		return err
	}
	for _, id := range ordered {
		if err := tx.UpdateItemStock(ctx, id, positions[id]); err != nil {
			return err
		}
	}
	return nil
}
