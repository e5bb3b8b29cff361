package backend

import (
	"context"
	"path/filepath"
	"testing"

	"jizhang/internal/config"
	"jizhang/internal/core"
)

func TestCreateLedgerDefaultsToSQLite(t *testing.T) {
	f := NewFactory(nil)
	cfg := &config.Config{
		SQLiteDBPath: filepath.Join(t.TempDir(), "test.db"),
	}

	res, err := f.CreateLedger(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateLedger: %v", err)
	}
	defer res.Cleanup()

	if res.Kind != KindSQLite {
		t.Errorf("Kind = %q, want %q", res.Kind, KindSQLite)
	}

	// The store works end to end.
	id, err := res.Ledger.Insert(context.Background(), "user-1", core.Money{Cents: 100}, "test")
	if err != nil {
		t.Fatalf("Insert through factory-built store: %v", err)
	}
	if id == 0 {
		t.Error("expected nonzero id")
	}
}

func TestCreateLedgerRequiresAPath(t *testing.T) {
	f := NewFactory(nil)

	if _, err := f.CreateLedger(context.Background(), &config.Config{}); err == nil {
		t.Fatal("expected error with no DSN and no path")
	}
	if _, err := f.CreateLedger(context.Background(), nil); err == nil {
		t.Fatal("expected error with nil config")
	}
}
