package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/anon-inbox/internal/infra/config"
	"github.com/arklim/anon-inbox/internal/infra/database/migrations"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.PostgresSettings{
		Host:     "db.internal",
		Port:     5433,
		User:     "inbox",
		Password: "p@ss word",
		Database: "inbox",
		SSLMode:  "require",
	})

	if !strings.HasPrefix(dsn, "postgres://inbox:") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Fatalf("expected password to be escaped: %s", dsn)
	}
	if !strings.Contains(dsn, "@db.internal:5433/inbox?sslmode=require") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least two migrations, got %v", entries)
	}
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	original := gooseUp
	t.Cleanup(func() { gooseUp = original })

	var called bool
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		called = true
		if dir != "." {
			t.Fatalf("expected migrations to run from the embedded root, got %q", dir)
		}
		return errors.New("boom")
	}

	err := runMigrations(context.Background(), nil, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "apply migrations") {
		t.Fatalf("expected wrapped migration error, got %v", err)
	}
	if !called {
		t.Fatalf("expected goose to be invoked")
	}
}
