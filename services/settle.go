package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"splitbills-backend/ledger"
)

// SnapshotLoader reads a consistent view of one group's ledger records.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, groupID uuid.UUID) (ledger.Snapshot, error)
}

// Overview is a group's balances together with the plan that clears them.
type Overview struct {
	Balances   ledger.NetBalance
	Transfers  []ledger.Transfer
	TotalSpent decimal.Decimal
}

// SettleService computes balances and settle-up plans. Plans are cached
// until Invalidate is called for the group or the cache entry expires.
type SettleService struct {
	loader SnapshotLoader
	cache  PlanCache
}

// NewSettleService wires the loader and an optional cache; a nil cache
// disables caching.
func NewSettleService(loader SnapshotLoader, cache PlanCache) *SettleService {
	if cache == nil {
		cache = nopCache{}
	}
	return &SettleService{loader: loader, cache: cache}
}

// Balances returns the unrounded net balance of every group member.
func (s *SettleService) Balances(ctx context.Context, groupID uuid.UUID) (nb ledger.NetBalance, err error) {
	defer observe("balances", time.Now(), &err)

	snap, err := s.loader.LoadSnapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return ledger.Aggregate(snap)
}

// Overview computes balances, the plan and the total spent from one snapshot.
func (s *SettleService) Overview(ctx context.Context, groupID uuid.UUID) (ov Overview, err error) {
	defer observe("overview", time.Now(), &err)

	snap, err := s.loader.LoadSnapshot(ctx, groupID)
	if err != nil {
		return Overview{}, err
	}
	nb, err := ledger.Aggregate(snap)
	if err != nil {
		return Overview{}, err
	}
	transfers, err := ledger.Plan(nb)
	if err != nil {
		return Overview{}, err
	}

	total := decimal.Zero
	for _, e := range snap.Expenses {
		total = total.Add(e.Amount)
	}
	return Overview{Balances: nb, Transfers: transfers, TotalSpent: total}, nil
}

// SettleUp returns the group's settle-up plan, served from the cache when
// possible. The generation is read before the snapshot so a plan computed
// from data that a concurrent write has since invalidated is never served.
// Cache failures are logged and never fail the request.
func (s *SettleService) SettleUp(ctx context.Context, groupID uuid.UUID) (transfers []ledger.Transfer, err error) {
	defer observe("settle_up", time.Now(), &err)

	gen, genErr := s.cache.Generation(ctx, groupID)
	if genErr != nil {
		settleCache.WithLabelValues("error").Inc()
		slog.Warn("Plan cache generation read failed", "group_id", groupID, "error", genErr)
	} else {
		cached, ok, cacheErr := s.cache.Get(ctx, groupID, gen)
		switch {
		case cacheErr != nil:
			settleCache.WithLabelValues("error").Inc()
			slog.Warn("Plan cache read failed", "group_id", groupID, "error", cacheErr)
		case ok:
			settleCache.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			settleCache.WithLabelValues("miss").Inc()
		}
	}

	snap, err := s.loader.LoadSnapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	nb, err := ledger.Aggregate(snap)
	if err != nil {
		return nil, err
	}
	transfers, err = ledger.Plan(nb)
	if err != nil {
		return nil, err
	}
	settleTransfers.Observe(float64(len(transfers)))

	// Without a known generation there is no key that a later Invalidate
	// is guaranteed to retire.
	if genErr == nil {
		if err := s.cache.Set(ctx, groupID, gen, transfers); err != nil {
			slog.Warn("Plan cache write failed", "group_id", groupID, "error", err)
		}
	}
	return transfers, nil
}

// Invalidate retires the cached plan after a write to the group's ledger.
func (s *SettleService) Invalidate(ctx context.Context, groupID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, groupID); err != nil {
		slog.Warn("Plan cache invalidation failed", "group_id", groupID, "error", err)
	}
}

func observe(op string, start time.Time, err *error) {
	settleDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	settleComputations.WithLabelValues(op, resultLabel(*err)).Inc()
	if *err != nil {
		slog.Warn("Settle computation failed", "op", op, "error", *err)
	}
}
