package vouchers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bahikhata/bahikhata/internal/money"
	"github.com/bahikhata/bahikhata/internal/shared"
)

const maxNarration = 500

// CreateDraft stores a new draft voucher. Drafts have no ledger or stock effect.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (Voucher, error) {
	entries, items, err := buildLines(in)
	if err != nil {
		return Voucher{}, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	insertedKey := false
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return Voucher{}, err
		}
		insertedKey = true
	}

	var created Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := resolveReferences(ctx, tx, in.PartyLedgerID, entries, items); err != nil {
			return err
		}
		seq, err := tx.NextVoucherNumber(ctx, in.Type)
		if err != nil {
			return err
		}
		v, err := tx.InsertVoucher(ctx, Voucher{
			Number:        FormatNumber(in.Type, seq),
			Type:          in.Type,
			Sequence:      seq,
			Date:          dateOnly(in.Date),
			Status:        StatusDraft,
			PartyLedgerID: in.PartyLedgerID,
			Narration:     strings.TrimSpace(in.Narration),
			Reference:     strings.TrimSpace(in.Reference),
			CreatedBy:     in.ActorID,
		})
		if err != nil {
			return err
		}
		if err := tx.ReplaceDraftLines(ctx, v.ID, entries, items); err != nil {
			return err
		}
		v.Entries = entries
		v.Items = items
		created = v
		return nil
	})
	if err != nil {
		if insertedKey {
			if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Voucher{}, err
	}
	s.record(ctx, in.ActorID, "voucher.draft", created, map[string]any{"lines": len(entries), "items": len(items)})
	return created, nil
}

// UpdateDraft replaces the header and lines of a draft. The voucher type is fixed
// once numbered.
func (s *Service) UpdateDraft(ctx context.Context, id int64, in DraftInput) (Voucher, error) {
	entries, items, err := buildLines(in)
	if err != nil {
		return Voucher{}, err
	}
	var updated Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusDraft {
			return ErrNotDraft
		}
		if v.Type != in.Type {
			verr := &ValidationError{}
			verr.add(0, "voucher_type", "cannot change the type of a numbered voucher")
			return verr
		}
		if err := resolveReferences(ctx, tx, in.PartyLedgerID, entries, items); err != nil {
			return err
		}
		v.Date = dateOnly(in.Date)
		v.PartyLedgerID = in.PartyLedgerID
		v.Narration = strings.TrimSpace(in.Narration)
		v.Reference = strings.TrimSpace(in.Reference)
		if err := tx.UpdateDraftHeader(ctx, v); err != nil {
			return err
		}
		if err := tx.ReplaceDraftLines(ctx, v.ID, entries, items); err != nil {
			return err
		}
		v.Entries = entries
		v.Items = items
		updated = v
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, in.ActorID, "voucher.update", updated, map[string]any{"lines": len(entries), "items": len(items)})
	return updated, nil
}

// DeleteDraft discards a draft. Posted and cancelled vouchers are never deleted.
func (s *Service) DeleteDraft(ctx context.Context, id, actorID int64) error {
	var deleted Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != StatusDraft {
			return ErrNotDraft
		}
		deleted = v
		return tx.DeleteVoucher(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "voucher.delete", deleted, nil)
	return nil
}

// buildLines performs every check that needs no database access.
func buildLines(in DraftInput) ([]EntryLine, []ItemLine, error) {
	verr := &ValidationError{}
	if !in.Type.Valid() {
		verr.add(0, "voucher_type", "unknown voucher type")
	}
	if in.Date.IsZero() {
		verr.add(0, "voucher_date", "required")
	}
	if in.PartyLedgerID != nil && *in.PartyLedgerID <= 0 {
		verr.add(0, "party_ledger_id", "must be a ledger id")
	}
	if len(in.Narration) > maxNarration {
		verr.add(0, "narration", "too long")
	}
	if len(in.Entries) == 0 {
		verr.add(0, "entries", "at least one entry is required")
	}

	entries := make([]EntryLine, 0, len(in.Entries))
	for i, e := range in.Entries {
		line := i + 1
		if e.LedgerID <= 0 {
			verr.add(line, "ledger_id", "required")
		}
		if msg := amountProblem(e.Debit); msg != "" {
			verr.add(line, "debit", msg)
		}
		if msg := amountProblem(e.Credit); msg != "" {
			verr.add(line, "credit", msg)
		}
		switch {
		case !e.Debit.IsZero() && !e.Credit.IsZero():
			verr.add(line, "amount", "only one of debit or credit may be set")
		case e.Debit.IsZero() && e.Credit.IsZero():
			verr.add(line, "amount", "one of debit or credit must be set")
		}
		entries = append(entries, EntryLine{LineNo: line, LedgerID: e.LedgerID, Debit: e.Debit, Credit: e.Credit})
	}

	var items []ItemLine
	if len(in.Items) > 0 {
		if _, ok := in.Type.StockDirection(); !ok && in.Type.Valid() {
			verr.add(0, "items", "stock items are only allowed on sales and purchase invoices")
		}
		items = make([]ItemLine, 0, len(in.Items))
		for i, it := range in.Items {
			line := i + 1
			if it.ItemID <= 0 {
				verr.add(line, "item_id", "required")
			}
			if !it.Quantity.IsPositive() {
				verr.add(line, "quantity", "must be positive")
			} else if err := money.CheckScale(it.Quantity, money.QuantityScale); err != nil {
				verr.add(line, "quantity", "at most 3 decimal places")
			}
			if msg := amountProblem(it.Rate); msg != "" {
				verr.add(line, "rate", msg)
			}
			items = append(items, ItemLine{LineNo: line, ItemID: it.ItemID, Quantity: it.Quantity, Rate: it.Rate})
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, nil, err
	}
	return entries, items, nil
}

func amountProblem(d decimal.Decimal) string {
	switch {
	case d.IsNegative():
		return "must not be negative"
	case money.CheckScale(d, money.AmountScale) != nil:
		return "at most 2 decimal places"
	}
	return ""
}

// resolveReferences checks that every ledger and item exists and is active.
func resolveReferences(ctx context.Context, tx TxRepository, party *int64, entries []EntryLine, items []ItemLine) error {
	ids := make([]int64, 0, len(entries)+1)
	for _, e := range entries {
		ids = append(ids, e.LedgerID)
	}
	if party != nil {
		ids = append(ids, *party)
	}
	ledgers, err := tx.GetLedgers(ctx, shared.LockOrder(ids))
	if err != nil {
		return err
	}
	verr := &ValidationError{}
	for _, e := range entries {
		l, ok := ledgers[e.LedgerID]
		switch {
		case !ok:
			verr.add(e.LineNo, "ledger_id", "ledger does not exist")
		case !l.IsActive:
			verr.add(e.LineNo, "ledger_id", "ledger is inactive")
		}
	}
	if party != nil {
		if l, ok := ledgers[*party]; !ok {
			verr.add(0, "party_ledger_id", "ledger does not exist")
		} else if !l.IsActive {
			verr.add(0, "party_ledger_id", "ledger is inactive")
		}
	}
	if len(items) > 0 {
		itemIDs := make([]int64, 0, len(items))
		for _, it := range items {
			itemIDs = append(itemIDs, it.ItemID)
		}
		found, err := tx.GetItems(ctx, shared.LockOrder(itemIDs))
		if err != nil {
			return err
		}
		for _, it := range items {
			item, ok := found[it.ItemID]
			switch {
			case !ok:
				verr.add(it.LineNo, "item_id", "item does not exist")
			case !item.IsActive:
				verr.add(it.LineNo, "item_id", "item is inactive")
			}
		}
	}
	return verr.orNil()
}
