// Package postgres implements the ledger store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jizhang/internal/core"
	"jizhang/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Ledger = (*Store)(nil)

// New connects to the database, pings it for fail-fast validation and
// applies the embedded migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

func parseDSN(dsn string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	return cfg, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Insert(ctx context.Context, userID string, amount core.Money, reason string) (int64, error) {
	rec := core.Record{UserID: userID, Amount: amount, Reason: reason}
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, amount_cents, reason, created_at)
		 VALUES ($1, $2, $3, now())
		 RETURNING id`,
		userID, amount.Cents, reason).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"record_id", id,
		"user_id", userID,
		"amount_cents", amount.Cents)

	return id, nil
}

func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]core.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, amount_cents, reason, created_at
		 FROM expenses
		 WHERE user_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var rec core.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount.Cents, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64, userID string) error {
	var owner string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM expenses WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up record %d: %w", id, err)
	}
	if owner != userID {
		return core.ErrNotOwner
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE expenses SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Expense deleted", "record_id", id, "user_id", userID)
	return nil
}

func (s *Store) DeleteBulk(ctx context.Context, ids []int64, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk delete: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT user_id FROM expenses WHERE id = ANY($1) AND deleted_at IS NULL`, ids)
	if err != nil {
		return 0, fmt.Errorf("look up bulk records: %w", err)
	}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan owner: %w", err)
		}
		if owner != userID {
			rows.Close()
			return 0, core.ErrNotOwner
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate owners: %w", err)
	}
	rows.Close()

	tag, err := tx.Exec(ctx,
		`UPDATE expenses SET deleted_at = now()
		 WHERE id = ANY($1) AND user_id = $2 AND deleted_at IS NULL`, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk delete: %w", err)
	}

	deleted := tag.RowsAffected()
	slog.InfoContext(ctx, "Bulk delete completed", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

func (s *Store) ClearAllForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE expenses SET deleted_at = now() WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear user records: %w", err)
	}

	deleted := tag.RowsAffected()
	slog.InfoContext(ctx, "User ledger cleared", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

func (s *Store) MonthlyTotal(ctx context.Context, userID string, year int, month time.Month) (core.Money, int64, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var (
		sum   int64
		count int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM expenses
		 WHERE user_id = $1 AND deleted_at IS NULL AND created_at >= $2 AND created_at < $3`,
		userID, start, end).Scan(&sum, &count)
	if err != nil {
		return core.Money{}, 0, fmt.Errorf("monthly total: %w", err)
	}
	return core.Money{Cents: sum}, count, nil
}

func (s *Store) AllTimeStats(ctx context.Context, userID string) (core.AllTimeStats, error) {
	var (
		stats       core.AllTimeStats
		first, last *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*), MIN(created_at), MAX(created_at)
		 FROM expenses
		 WHERE user_id = $1 AND deleted_at IS NULL`,
		userID).Scan(&stats.Total.Cents, &stats.Count, &first, &last)
	if err != nil {
		return core.AllTimeStats{}, fmt.Errorf("all-time totals: %w", err)
	}
	if first != nil {
		stats.First = first.UTC()
	}
	if last != nil {
		stats.Last = last.UTC()
	}

	rows, err := s.pool.Query(ctx,
		`SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM'), SUM(amount_cents), COUNT(*)
		 FROM expenses
		 WHERE user_id = $1 AND deleted_at IS NULL
		 GROUP BY 1
		 ORDER BY 1 DESC
		 LIMIT 12`, userID)
	if err != nil {
		return core.AllTimeStats{}, fmt.Errorf("monthly breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key    string
			bucket core.MonthBucket
		)
		if err := rows.Scan(&key, &bucket.Total.Cents, &bucket.Count); err != nil {
			return core.AllTimeStats{}, fmt.Errorf("scan month bucket: %w", err)
		}
		ym, err := time.Parse("2006-01", key)
		if err != nil {
			return core.AllTimeStats{}, fmt.Errorf("parse month key %q: %w", key, err)
		}
		bucket.Year, bucket.Month = ym.Year(), ym.Month()
		stats.Monthly = append(stats.Monthly, bucket)
	}
	if err := rows.Err(); err != nil {
		return core.AllTimeStats{}, fmt.Errorf("iterate month buckets: %w", err)
	}
	return stats, nil
}

func (s *Store) WindowStats(ctx context.Context, userID string, since time.Time) (core.WindowStats, error) {
	var (
		stats       core.WindowStats
		first, last *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*), MIN(created_at), MAX(created_at)
		 FROM expenses
		 WHERE user_id = $1 AND deleted_at IS NULL AND created_at >= $2`,
		userID, since.UTC()).Scan(&stats.Total.Cents, &stats.Count, &first, &last)
	if err != nil {
		return core.WindowStats{}, fmt.Errorf("window stats: %w", err)
	}
	if first != nil {
		stats.First = first.UTC()
	}
	if last != nil {
		stats.Last = last.UTC()
	}
	stats.Since = since.UTC()
	return stats, nil
}

func (s *Store) EarliestRecordTime(ctx context.Context, userID string) (time.Time, bool, error) {
	var earliest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(created_at) FROM expenses WHERE user_id = $1 AND deleted_at IS NULL`,
		userID).Scan(&earliest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("earliest record: %w", err)
	}
	if earliest == nil {
		return time.Time{}, false, nil
	}
	return earliest.UTC(), true, nil
}

func (s *Store) ResetWatermark(ctx context.Context, userID string) (time.Time, bool, error) {
	var wm time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT reset_watermark FROM user_settings WHERE user_id = $1`, userID).Scan(&wm)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read watermark: %w", err)
	}
	return wm.UTC(), true, nil
}

func (s *Store) SetResetWatermark(ctx context.Context, userID string, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, reset_watermark)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET reset_watermark = EXCLUDED.reset_watermark`,
		userID, ts.UTC())
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
