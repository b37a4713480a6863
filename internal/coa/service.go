package coa

import (
	"context"
	"strings"
)

// Service exposes read access to the chart of accounts.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetGroup returns the group registered under code.
func (s *Service) GetGroup(ctx context.Context, code string) (AccountGroup, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return AccountGroup{}, ErrInvalidCode
	}
	return s.repo.GetGroup(ctx, code)
}

// ListGroups returns every group ordered by code.
func (s *Service) ListGroups(ctx context.Context) ([]AccountGroup, error) {
	return s.repo.ListGroups(ctx)
}

// GetLedger returns a ledger by id.
func (s *Service) GetLedger(ctx context.Context, id int64) (Ledger, error) {
	if id <= 0 {
		return Ledger{}, ErrLedgerNotFound
	}
	return s.repo.GetLedger(ctx, id)
}

// ListLedgers returns the ledgers matching filter ordered by name.
func (s *Service) ListLedgers(ctx context.Context, filter LedgerFilter) ([]Ledger, error) {
	filter.GroupCode = strings.TrimSpace(filter.GroupCode)
	filter.Query = strings.TrimSpace(filter.Query)
	return s.repo.ListLedgers(ctx, filter)
}
