package db

import (
	"path/filepath"
	"testing"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

func TestSQLiteServiceMigrates(t *testing.T) {
	svc, err := NewService(logger.NewNop(), Options{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "nested", "spackmon.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer svc.Close()

	if svc.Driver() != "sqlite" {
		t.Fatalf("driver = %q", svc.Driver())
	}
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// idempotent
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	for _, table := range []string{"specs", "spec_dependencies", "builds", "build_envars", "attributes", "users"} {
		if !svc.DB().Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestOptionsDSN(t *testing.T) {
	o := Options{Driver: "postgres", PostgresUser: "u", PostgresPassword: "p", PostgresHost: "h", PostgresPort: "5432", PostgresName: "spackmon"}
	if got := o.DSN(); got != "postgres://u:p@h:5432/spackmon?sslmode=disable" {
		t.Fatalf("DSN = %q", got)
	}
	if got := SQLiteDSN("/tmp/x.db"); got != "/tmp/x.db?_busy_timeout=5000&_journal_mode=WAL" {
		t.Fatalf("SQLiteDSN = %q", got)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := NewService(logger.NewNop(), Options{Driver: "mysql"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
