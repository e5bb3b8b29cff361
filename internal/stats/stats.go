// Package stats computes aggregate views over the ledger store: the
// all-time totals and the user-resettable "current" window.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/store"
)

type Engine struct {
	ledger store.Ledger
}

func New(ledger store.Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Current aggregates records at or after the user's reset watermark. The
// watermark is initialized lazily on first read: to the timestamp of the
// user's oldest record, or to now if the user has none. Pure function of
// watermark plus records; calling it twice changes nothing.
func (e *Engine) Current(ctx context.Context, userID string) (core.WindowStats, error) {
	wm, err := e.watermark(ctx, userID)
	if err != nil {
		return core.WindowStats{}, err
	}
	return e.ledger.WindowStats(ctx, userID, wm)
}

// ResetCurrent captures the current window as a snapshot, then moves the
// watermark to now. Only the watermark moves; no record is deleted or
// mutated. The snapshot is returned so the caller can report how much was
// cleared.
func (e *Engine) ResetCurrent(ctx context.Context, userID string) (core.WindowStats, error) {
	snapshot, err := e.Current(ctx, userID)
	if err != nil {
		return core.WindowStats{}, err
	}

	now := time.Now().UTC()
	// Storage keeps second granularity. A record written in the same
	// second as the reset must land before the new watermark, not inside
	// the fresh window.
	if snapshot.Count > 0 && !snapshot.Last.Before(now.Truncate(time.Second)) {
		now = snapshot.Last.Add(time.Second)
	}
	if err := e.ledger.SetResetWatermark(ctx, userID, now); err != nil {
		return core.WindowStats{}, fmt.Errorf("move watermark: %w", err)
	}

	slog.InfoContext(ctx, "Current stats reset",
		"user_id", userID,
		"cleared_cents", snapshot.Total.Cents,
		"cleared_count", snapshot.Count)

	return snapshot, nil
}

// AllTime is a pass-through aggregation over the complete record set.
func (e *Engine) AllTime(ctx context.Context, userID string) (core.AllTimeStats, error) {
	return e.ledger.AllTimeStats(ctx, userID)
}

// MonthlyTotal is a pass-through for one calendar month.
func (e *Engine) MonthlyTotal(ctx context.Context, userID string, year int, month time.Month) (core.Money, int64, error) {
	return e.ledger.MonthlyTotal(ctx, userID, year, month)
}

func (e *Engine) watermark(ctx context.Context, userID string) (time.Time, error) {
	wm, ok, err := e.ledger.ResetWatermark(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("read watermark: %w", err)
	}
	if ok {
		return wm, nil
	}

	wm, ok, err = e.ledger.EarliestRecordTime(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("seed watermark: %w", err)
	}
	if !ok {
		wm = time.Now().UTC()
	}
	if err := e.ledger.SetResetWatermark(ctx, userID, wm); err != nil {
		return time.Time{}, fmt.Errorf("store seeded watermark: %w", err)
	}
	return wm, nil
}
