package reports

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bahikhata/bahikhata/internal/coa"
	"github.com/bahikhata/bahikhata/internal/money"
)

const dateKey = "2006-01-02"

// Service builds reports, caching results until the next post or cancel.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cached serves dest from the cache. When the cache version cannot be read
// the loader runs uncached.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("key", parts), slog.Any("error", err))
		return (*Cache)(nil).FetchJSON(ctx, "", dest, loader)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// SumByStatus counts vouchers per status with the posted amount of each.
// Drafts are counted but carry no amount.
func (s *Service) SumByStatus(ctx context.Context) ([]StatusTotal, error) {
	var out []StatusTotal
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.StatusTotals(ctx)
	}, "status")
	return out, err
}

// SumByTypeAndStatus is SumByStatus split by voucher type.
func (s *Service) SumByTypeAndStatus(ctx context.Context) ([]TypeStatusTotal, error) {
	var out []TypeStatusTotal
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.TypeStatusTotals(ctx)
	}, "type_status")
	return out, err
}

// Summary fetches both voucher aggregates concurrently.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.SumByStatus(ctx)
		sum.ByStatus = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.SumByTypeAndStatus(ctx)
		sum.ByTypeAndStatus = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// LedgerBalanceAsOf folds the ledger's opening balance with every posted and
// reversal row dated on or before asOf. A zero asOf means today.
func (s *Service) LedgerBalanceAsOf(ctx context.Context, ledgerID int64, asOf time.Time) (LedgerBalance, error) {
	if ledgerID <= 0 {
		return LedgerBalance{}, coa.ErrLedgerNotFound
	}
	if asOf.IsZero() {
		asOf = s.today()
	}
	var out LedgerBalance
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		totals, err := s.repo.LedgerTotals(ctx, ledgerID, asOf)
		if err != nil {
			return nil, err
		}
		if len(totals) == 0 {
			return nil, coa.ErrLedgerNotFound
		}
		t := totals[0]
		return LedgerBalance{
			LedgerID:    t.Ledger.ID,
			LedgerName:  t.Ledger.Name,
			BalanceType: t.Ledger.BalanceType,
			AsOf:        asOf,
			Opening:     t.Ledger.OpeningBalance,
			Debit:       t.Debit,
			Credit:      t.Credit,
			Balance:     t.Balance(),
		}, nil
	}, "balance", strconv.FormatInt(ledgerID, 10), asOf.Format(dateKey))
	return out, err
}

// TrialBalance lists closing balances as of a date. Concurrent requests for
// the same date share one build.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	if asOf.IsZero() {
		asOf = s.today()
	}
	key := asOf.Format(dateKey)
	val, err, _ := buildOnce(ctx, "trial:"+key, func(ctx context.Context) (any, error) {
		var tb TrialBalance
		err := s.cached(ctx, &tb, func(ctx context.Context) (any, error) {
			return s.buildTrialBalance(ctx, asOf)
		}, "trial_balance", key)
		return tb, err
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return val.(TrialBalance), nil
}

func (s *Service) buildTrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	totals, err := s.repo.LedgerTotals(ctx, 0, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{AsOf: asOf, Lines: []TrialBalanceLine{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, t := range totals {
		// Closing balance expressed on the debit side.
		debitSide := t.Balance()
		if t.Ledger.BalanceType == coa.BalanceCredit {
			debitSide = debitSide.Neg()
		}
		debitSide = money.Round2(debitSide)
		if debitSide.IsZero() {
			continue
		}
		line := TrialBalanceLine{
			LedgerID:   t.Ledger.ID,
			LedgerCode: t.Ledger.Code,
			LedgerName: t.Ledger.Name,
			GroupCode:  t.Ledger.GroupCode,
			Debit:      decimal.Zero,
			Credit:     decimal.Zero,
		}
		if debitSide.IsPositive() {
			line.Debit = debitSide
			tb.TotalDebit = tb.TotalDebit.Add(debitSide)
		} else {
			line.Credit = debitSide.Neg()
			tb.TotalCredit = tb.TotalCredit.Add(line.Credit)
		}
		tb.Lines = append(tb.Lines, line)
	}
	return tb, nil
}

// LedgerStatement lists a ledger's rows between two dates with a running
// balance. Zero dates default to the start of the month and today.
func (s *Service) LedgerStatement(ctx context.Context, ledgerID int64, from, to time.Time) (Statement, error) {
	if ledgerID <= 0 {
		return Statement{}, coa.ErrLedgerNotFound
	}
	if to.IsZero() {
		to = s.today()
	}
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.Before(from) {
		return Statement{}, ErrInvalidRange
	}
	opening, lines, err := s.repo.Statement(ctx, ledgerID, from, to)
	if err != nil {
		return Statement{}, err
	}
	st := Statement{Ledger: opening.Ledger, From: from, To: to, Opening: opening.Balance(), Lines: lines}
	running := st.Opening
	for i := range st.Lines {
		running = running.Add(opening.Ledger.Delta(st.Lines[i].Debit, st.Lines[i].Credit))
		st.Lines[i].Balance = running
	}
	if st.Lines == nil {
		st.Lines = []StatementLine{}
	}
	st.Closing = running
	return st, nil
}
