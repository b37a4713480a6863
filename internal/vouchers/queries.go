package vouchers

import (
	"context"
	"strings"

	"github.com/bahikhata/bahikhata/internal/shared"
)

// ListResult is one page of voucher headers.
type ListResult struct {
	Vouchers   []Voucher
	Pagination shared.Pagination
}

// List returns voucher headers matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	verr := &ValidationError{}
	if filter.Status != "" && !filter.Status.Valid() {
		verr.add(0, "status", "unknown status")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		verr.add(0, "type", "unknown voucher type")
	}
	if filter.Sort == "" {
		filter.Sort = DefaultSort
	}
	if !ValidSort(filter.Sort) {
		verr.add(0, "sort", "unsupported sort")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		verr.add(0, "to", "must not precede from")
	}
	if err := verr.orNil(); err != nil {
		return ListResult{}, err
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)

	vouchers, total, err := s.repo.ListVouchers(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Vouchers: vouchers, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Get returns a voucher with its document lines and any posted rows.
func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	var v Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		v, err = tx.GetVoucher(ctx, id)
		if err != nil {
			return err
		}
		v.Entries, v.Items, err = tx.GetDraftLines(ctx, id)
		if err != nil {
			return err
		}
		if v.Status == StatusDraft {
			return nil
		}
		if v.LedgerEntries, err = tx.ListLedgerEntries(ctx, id); err != nil {
			return err
		}
		v.StockMovements, err = tx.ListStockMovements(ctx, id)
		return err
	})
	return v, err
}
