// Package audit reads the audit trail written by the voucher service.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bahikhata/bahikhata/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// ErrInvalidRange reports a timeline window whose end precedes its start.
var ErrInvalidRange = fmt.Errorf("audit: to precedes from: %w", shared.ErrValidation)

// WindowParams is a repository query for one page.
type WindowParams struct {
	Filters TimelineFilters
	Offset  int
	Limit   int
}

// Repository loads audit rows newest first.
type Repository interface {
	Window(ctx context.Context, params WindowParams) ([]TimelineRow, error)
}

// Service serves paged audit timelines.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page. It fetches a single extra row to learn whether a
// next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return Result{}, ErrInvalidRange
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	rows, err := s.repo.Window(ctx, WindowParams{
		Filters: filters,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
