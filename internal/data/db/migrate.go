package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/spackmon-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Spec graph
		// =========================
		&types.Target{},
		&types.Feature{},
		&types.TargetFeature{},
		&types.TargetParent{},
		&types.Architecture{},
		&types.Compiler{},
		&types.Spec{},
		&types.Dependency{},

		// =========================
		// Builds
		// =========================
		&types.BuildEnvironment{},
		&types.Build{},
		&types.BuildTag{},
		&types.BuildPhase{},
		&types.BuildError{},
		&types.BuildWarning{},
		&types.InstallFile{},
		&types.Attribute{},
		&types.EnvironmentVariable{},
		&types.BuildEnvar{},

		// =========================
		// Auth
		// =========================
		&types.User{},
		&types.UserToken{},
	)
}

// EnsureBuildIndexes adds postgres-only partial indexes used by the log parse sweep and
// the envar reference count.
func EnsureBuildIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_builds_logs_unparsed
		ON builds (id)
		WHERE logs_parsed = false;
	`).Error; err != nil {
		return fmt.Errorf("create idx_builds_logs_unparsed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_user_tokens_active
		ON user_tokens (user_id, expires_at)
		WHERE revoked_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_user_tokens_active: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureBuildIndexes(s.db); err != nil {
		s.log.Error("Build index migration failed", "error", err)
		return err
	}
	return nil
}
