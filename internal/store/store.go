// Package store defines the backend-agnostic ledger interface. Two
// implementations exist, sqlite and postgres; the backend is chosen once
// at startup and callers never branch on the concrete type.
package store

import (
	"context"
	"time"

	"jizhang/internal/core"
)

// Ledger is an append-only, soft-deletable record store plus the per-user
// statistics reset watermark. Every operation is scoped by user id;
// mutations touching a record owned by a different user fail with
// core.ErrNotOwner, distinguishable from core.ErrNotFound.
type Ledger interface {
	// Insert appends a record and returns its id. Single statement,
	// single commit; never partially writes.
	Insert(ctx context.Context, userID string, amount core.Money, reason string) (int64, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]core.Record, error)

	// DeleteByID soft-deletes the record if it exists and belongs to
	// userID. Returns core.ErrNotFound or core.ErrNotOwner otherwise.
	DeleteByID(ctx context.Context, id int64, userID string) error

	// DeleteBulk soft-deletes the given ids. If any id belongs to a
	// different user the whole operation aborts with core.ErrNotOwner
	// and nothing is deleted; nonexistent ids are skipped. Returns the
	// number of rows removed.
	DeleteBulk(ctx context.Context, ids []int64, userID string) (int64, error)

	// ClearAllForUser soft-deletes every record of the user and returns
	// how many were removed.
	ClearAllForUser(ctx context.Context, userID string) (int64, error)

	// MonthlyTotal sums the half-open range [first of month, first of
	// next month). December rolls over to January of year+1.
	MonthlyTotal(ctx context.Context, userID string, year int, month time.Month) (core.Money, int64, error)

	// AllTimeStats aggregates the full record set with a breakdown of
	// the most recent twelve calendar months, newest first.
	AllTimeStats(ctx context.Context, userID string) (core.AllTimeStats, error)

	// WindowStats aggregates records created at or after since.
	WindowStats(ctx context.Context, userID string, since time.Time) (core.WindowStats, error)

	// EarliestRecordTime returns the creation time of the user's oldest
	// record, or ok=false if the user has none.
	EarliestRecordTime(ctx context.Context, userID string) (time.Time, bool, error)

	// ResetWatermark returns the user's watermark, or ok=false if the
	// settings row does not exist yet.
	ResetWatermark(ctx context.Context, userID string) (time.Time, bool, error)

	// SetResetWatermark upserts the user's watermark.
	SetResetWatermark(ctx context.Context, userID string, ts time.Time) error

	Close() error
}
