package vouchers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bahikhata/bahikhata/internal/inventory"
	"github.com/bahikhata/bahikhata/internal/shared"
)

// AuditPort records voucher events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards draft creation against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// CacheInvalidator drops cached reports after balances change.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsPort observes posting and cancellation attempts.
type MetricsPort interface {
	ObservePosting(operation, outcome string, elapsed time.Duration)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	// PostTimeout bounds a single post or cancel transaction.
	PostTimeout time.Duration
	// MaxRetries is how many times a conflicting post or cancel is retried
	// before ErrConcurrentModification reaches the caller.
	MaxRetries int
	Logger     *slog.Logger
}

// Service coordinates the voucher lifecycle.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	cache       CacheInvalidator
	metrics     MetricsPort
	policy      inventory.Policy
	timeout     time.Duration
	retries     int
	logger      *slog.Logger
	now         func() time.Time
}

const idempotencyModule = "vouchers"

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		policy:      inventory.Policy{AllowNegativeStock: cfg.AllowNegativeStock},
		timeout:     cfg.PostTimeout,
		retries:     retries,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache registers the report cache invalidated after post and cancel.
func (s *Service) WithCache(cache CacheInvalidator) {
	s.cache = cache
}

// WithMetrics registers the posting metrics sink.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// runLocked executes fn in a bounded transaction, retrying on conflicts.
func (s *Service) runLocked(ctx context.Context, operation string, fn func(context.Context, TxRepository) error) error {
	start := s.now()
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = s.runOnce(ctx, fn)
		if !shared.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		s.logger.Warn("voucher transaction conflict",
			slog.String("operation", operation), slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	if s.metrics != nil {
		s.metrics.ObservePosting(operation, outcome(err), s.now().Sub(start))
	}
	return err
}

func (s *Service) runOnce(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.repo.WithTx(ctx, fn)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrImbalanced):
		return "imbalanced"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, shared.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func (s *Service) record(ctx context.Context, actorID int64, action string, v Voucher, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["number"] = v.Number
	meta["type"] = string(v.Type)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", v.ID),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Int64("voucher_id", v.ID), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}
