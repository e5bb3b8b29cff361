// Package backend selects and constructs the ledger store. The choice is
// made once at startup: a configured postgres DSN wins, otherwise records
// live in an embedded SQLite file.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"jizhang/internal/config"
	"jizhang/internal/store"
	"jizhang/internal/store/postgres"
	"jizhang/internal/store/sqlite"
)

type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result bundles the constructed store with its cleanup.
type Result struct {
	Ledger  store.Ledger
	Kind    Kind
	Cleanup CleanupFunc
}

// Factory creates ledger stores from configuration.
type Factory interface {
	CreateLedger(ctx context.Context, cfg *config.Config) (*Result, error)
}

type defaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultFactory{logger: logger}
}

func (f *defaultFactory) CreateLedger(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.PostgresDSN != "" {
		return f.createPostgres(ctx, cfg.PostgresDSN)
	}
	return f.createSQLite(ctx, cfg.SQLiteDBPath)
}

func (f *defaultFactory) createPostgres(ctx context.Context, dsn string) (*Result, error) {
	st, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Ledger backend ready", "backend", KindPostgres)
	return &Result{
		Ledger:  st,
		Kind:    KindPostgres,
		Cleanup: st.Close,
	}, nil
}

func (f *defaultFactory) createSQLite(ctx context.Context, dbPath string) (*Result, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("SQLite database path is required without a postgres DSN")
	}

	st, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("create sqlite backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Ledger backend ready", "backend", KindSQLite, "path", dbPath)
	return &Result{
		Ledger:  st,
		Kind:    KindSQLite,
		Cleanup: st.Close,
	}, nil
}
