package inventory

import (
	"context"
	"strings"
)

// Service exposes stock items and their movement history. Stock levels are
// changed only by voucher posting and cancellation.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, ErrItemNotFound
	}
	return s.repo.GetItem(ctx, id)
}

// ListItems returns items ordered by name.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	return s.repo.ListItems(ctx, filter)
}

// GetStockCard lists the movements of one item in date order.
func (s *Service) GetStockCard(ctx context.Context, filter StockCardFilter) ([]StockCardEntry, error) {
	if filter.ItemID == 0 {
		return nil, ErrFilterRequired
	}
	if _, err := s.repo.GetItem(ctx, filter.ItemID); err != nil {
		return nil, err
	}
	return s.repo.GetStockCard(ctx, filter)
}
