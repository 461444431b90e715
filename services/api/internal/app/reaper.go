package app

import (
	"context"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/clock"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultReaperInterval  = 30 * time.Second
	defaultReaperBatchSize = 100
)

// Reaper expires intents whose hold window elapsed and frees their stock.
type Reaper struct {
	tx        Transactor
	intents   IntentRepository
	locks     LockRepository
	lockMgr   *LockManager
	lease     SweepLease
	events    EventPublisher
	metrics   Metrics
	clock     clock.Clock
	logger    zerolog.Logger
	interval  time.Duration
	batchSize int
}

type ReaperOption func(*Reaper)

func WithReaperInterval(d time.Duration) ReaperOption {
	return func(r *Reaper) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithReaperBatchSize(n int) ReaperOption {
	return func(r *Reaper) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithReaperLease makes each sweep take a shared lease first.
func WithReaperLease(l SweepLease) ReaperOption {
	return func(r *Reaper) { r.lease = l }
}

func WithReaperEvents(p EventPublisher) ReaperOption {
	return func(r *Reaper) {
		if p != nil {
			r.events = p
		}
	}
}

func WithReaperMetrics(m Metrics) ReaperOption {
	return func(r *Reaper) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithReaperLogger(logger zerolog.Logger) ReaperOption {
	return func(r *Reaper) { r.logger = logger }
}

func NewReaper(tx Transactor, intents IntentRepository, locks LockRepository, lockMgr *LockManager, clk clock.Clock, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		tx:        tx,
		intents:   intents,
		locks:     locks,
		lockMgr:   lockMgr,
		events:    nopPublisher{},
		metrics:   nopMetrics{},
		clock:     clk,
		logger:    zerolog.Nop(),
		interval:  defaultReaperInterval,
		batchSize: defaultReaperBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type SweepResult struct {
	Scanned  int
	Expired  int
	Released int
	Skipped  int
	Failed   int
	// LeaseHeld is true when another instance owned the sweep lease.
	LeaseHeld bool
}

// Run sweeps immediately and then on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Int("batch_size", r.batchSize).Msg("reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("reaper sweep")
		}
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reaper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass. A failure on one intent is logged and counted; the rest
// of the batch still runs.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "Reaper.Sweep")
	defer span.End()

	var result SweepResult
	start := time.Now()

	if r.lease != nil {
		ok, err := r.lease.Acquire(ctx)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Msg("sweep lease unavailable, sweeping anyway")
		case !ok:
			result.LeaseHeld = true
			return result, nil
		default:
			defer func() {
				if err := r.lease.Release(context.WithoutCancel(ctx)); err != nil {
					r.logger.Warn().Err(err).Msg("release sweep lease")
				}
			}()
		}
	}

	now := r.clock.Now()
	ids, err := r.locks.ListExpiredIntentIDs(ctx, now, r.batchSize)
	if err != nil {
		return result, err
	}
	result.Scanned = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		outcome, err := r.reapOne(ctx, id, now)
		if err != nil {
			result.Failed++
			r.logger.Error().Err(err).Str("intent_id", id).Msg("reap intent")
			continue
		}
		switch outcome.kind {
		case reapExpired:
			result.Expired++
		case reapSkipped:
			result.Skipped++
		}
		result.Released += outcome.released
	}

	elapsed := time.Since(start)
	r.metrics.SweepCompleted(result.Expired, result.Released, result.Failed, elapsed)
	span.SetAttributes(
		attribute.Int("reaper.scanned", result.Scanned),
		attribute.Int("reaper.expired", result.Expired),
		attribute.Int("reaper.failed", result.Failed),
	)
	if result.Scanned > 0 {
		r.logger.Info().
			Int("scanned", result.Scanned).
			Int("expired", result.Expired).
			Int("released", result.Released).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Dur("elapsed", elapsed).
			Msg("reaper sweep finished")
	}
	return result, nil
}

type reapKind int

const (
	reapExpired reapKind = iota
	reapOrphan
	reapSkipped
)

type reapOutcome struct {
	kind     reapKind
	released int
}

func (r *Reaper) reapOne(ctx context.Context, intentID string, now time.Time) (reapOutcome, error) {
	var (
		outcome reapOutcome
		intent  domain.OrderIntent
	)
	err := r.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := r.intents.GetIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		intent = current

		switch current.Status {
		case domain.IntentStatusCreated:
			if !current.ExpiredAt(now) {
				// Lock and intent windows disagree; the intent is still live.
				outcome.kind = reapSkipped
				return nil
			}
			ok, released, err := expireIntent(txCtx, r.intents, r.lockMgr, current, now)
			if err != nil {
				return err
			}
			if !ok {
				outcome.kind = reapSkipped
				return nil
			}
			outcome = reapOutcome{kind: reapExpired, released: released}
			return nil
		case domain.IntentStatusExpired, domain.IntentStatusCancelled:
			released, err := r.lockMgr.ExpireAll(txCtx, intentID)
			if err != nil {
				return err
			}
			outcome = reapOutcome{kind: reapOrphan, released: released}
			return nil
		default:
			r.logger.Warn().
				Str("intent_id", intentID).
				Str("status", string(current.Status)).
				Msg("intent owns locked rows past expiry, leaving untouched")
			outcome.kind = reapSkipped
			return nil
		}
	})
	if err != nil {
		return reapOutcome{}, err
	}

	if outcome.kind == reapExpired {
		intent.Status = domain.IntentStatusExpired
		r.metrics.IntentClosed(domain.IntentStatusExpired)
		if err := r.events.Publish(ctx, domain.NewIntentEvent(domain.EventIntentExpired, intent, now)); err != nil {
			r.logger.Warn().Err(err).Str("intent_id", intentID).Msg("publish intent event")
		}
	}
	return outcome, nil
}
