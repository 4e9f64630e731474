package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type Options struct {
	Driver string // postgres | sqlite

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string

	SQLitePath string

	SlowThreshold time.Duration
	MaxOpenConns  int
}

func (o Options) DSN() string {
	if o.Driver == "sqlite" {
		return o.SQLitePath
	}
	sslmode := o.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		o.PostgresUser,
		o.PostgresPassword,
		o.PostgresHost,
		o.PostgresPort,
		o.PostgresName,
		sslmode,
	)
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func NewService(logg *logger.Logger, opts Options) (*Service, error) {
	serviceLog := logg.With("service", "DBService", "driver", opts.Driver)

	slow := opts.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "sqlite", "sqlite3":
		path := opts.SQLitePath
		if path == "" {
			path = "spackmon.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(path)), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
		}
		// one writer at a time keeps SQLITE_BUSY out of concurrent upserts
		if sqlDB, sErr := db.DB(); sErr == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		opts.Driver = "sqlite"
	case "", "postgres", "postgresql":
		db, err = gorm.Open(postgres.Open(opts.DSN()), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			if sqlDB, sErr := db.DB(); sErr == nil {
				sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
			}
		}
		opts.Driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}

	serviceLog.Info("database connected")
	return &Service{db: db, log: serviceLog, driver: opts.Driver}, nil
}

// SQLiteDSN enables WAL and a busy timeout on a sqlite file path.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_journal_mode=WAL"
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
