package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/spackmon-backend/internal/platform/envutil"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

const DefaultSettingsFile = "settings.yml"

type Config struct {
	LogMode string `yaml:"log_mode"`

	DBDriver         string `yaml:"db_driver"`
	SQLitePath       string `yaml:"sqlite_path"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	Port               string   `yaml:"port"`
	APIPrefix          string   `yaml:"api_prefix"`
	ServerURL          string   `yaml:"server_url"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	DisableAuthentication bool   `yaml:"disable_authentication"`
	JWTSecret             string `yaml:"jwt_secret"`
	JWTExpiresMinutes     int    `yaml:"jwt_expires_minutes"`

	RateLimit      string `yaml:"rate_limit"`
	RateLimitBlock bool   `yaml:"rate_limit_block"`

	CascadeMode         string        `yaml:"cascade_mode"`
	InstallPrefixMarker string        `yaml:"install_prefix_marker"`
	SymbolAnalyzer      string        `yaml:"symbol_analyzer"`
	LogParseInterval    time.Duration `yaml:"log_parse_interval"`
	LogParseBatch       int           `yaml:"log_parse_batch"`
	TokenPurgeInterval  time.Duration `yaml:"token_purge_interval"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OtelEnabled     bool    `yaml:"otel_enabled"`
	OtelEndpoint    string  `yaml:"otel_endpoint"`
	OtelHeaders     string  `yaml:"otel_headers"`
	OtelInsecure    bool    `yaml:"otel_insecure"`
	OtelSampleRatio float64 `yaml:"otel_sample_ratio"`

	ServiceName  string `yaml:"service_name"`
	Organization string `yaml:"organization"`
	ContactURL   string `yaml:"contact_url"`
	Environment  string `yaml:"environment"`
	Version      string `yaml:"version"`
}

func DefaultConfig() Config {
	return Config{
		LogMode:             "development",
		DBDriver:            "sqlite",
		SQLitePath:          "spackmon.db",
		PostgresHost:        "localhost",
		PostgresPort:        "5432",
		PostgresUser:        "spackmon",
		PostgresName:        "spackmon",
		Port:                "8080",
		APIPrefix:           "ms1",
		JWTSecret:           "defaultsecret",
		JWTExpiresMinutes:   10,
		RateLimit:           "1000/1d",
		CascadeMode:         "direct",
		InstallPrefixMarker: "/spack/opt/spack/",
		SymbolAnalyzer:      "symbolator-json",
		LogParseInterval:    5 * time.Minute,
		LogParseBatch:       100,
		TokenPurgeInterval:  time.Hour,
		RedisChannel:        "spackmon:builds",
		Neo4jDatabase:       "neo4j",
		MetricsEnabled:      true,
		OtelSampleRatio:     1,
		ServiceName:         "spackmon",
		Organization:        "spack",
		ContactURL:          "https://github.com/spack/spack-monitor/issues",
		Environment:         "development",
		Version:             "0.0.1",
	}
}

// LoadConfig layers built-in defaults, the optional settings file and the environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()

	path := envutil.String("SPACKMON_CONFIG", "")
	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	} else {
		log.Info("Loaded settings file", "path", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	str := func(dst *string, names ...string) {
		for _, n := range names {
			if v := envutil.String(n, ""); v != "" {
				*dst = v
				return
			}
		}
	}
	boolean := func(dst *bool, names ...string) {
		for _, n := range names {
			if envutil.String(n, "") != "" {
				*dst = envutil.Bool(n, *dst)
				return
			}
		}
	}

	str(&c.LogMode, "SPACKMON_LOG_MODE", "LOG_MODE")
	str(&c.DBDriver, "SPACKMON_DB_DRIVER")
	str(&c.SQLitePath, "SPACKMON_SQLITE_PATH")
	str(&c.PostgresHost, "SPACKMON_POSTGRES_HOST", "POSTGRES_HOST")
	str(&c.PostgresPort, "SPACKMON_POSTGRES_PORT", "POSTGRES_PORT")
	str(&c.PostgresUser, "SPACKMON_POSTGRES_USER", "POSTGRES_USER")
	str(&c.PostgresPassword, "SPACKMON_POSTGRES_PASSWORD", "POSTGRES_PASSWORD")
	str(&c.PostgresName, "SPACKMON_POSTGRES_NAME", "POSTGRES_NAME")
	str(&c.PostgresSSLMode, "SPACKMON_POSTGRES_SSLMODE", "POSTGRES_SSLMODE")
	str(&c.Port, "SPACKMON_PORT", "PORT")
	str(&c.APIPrefix, "SPACKMON_API_PREFIX")
	str(&c.ServerURL, "SPACKMON_SERVER_URL")
	if v := envutil.String("SPACKMON_CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	boolean(&c.DisableAuthentication, "SPACKMON_DISABLE_AUTHENTICATION")
	str(&c.JWTSecret, "SPACKMON_JWT_SECRET", "JWT_SECRET_KEY")
	c.JWTExpiresMinutes = envutil.Int("SPACKMON_JWT_EXPIRES_MINUTES", c.JWTExpiresMinutes)
	str(&c.RateLimit, "SPACKMON_RATE_LIMIT")
	boolean(&c.RateLimitBlock, "SPACKMON_RATE_LIMIT_BLOCK")
	str(&c.CascadeMode, "SPACKMON_CASCADE_MODE")
	str(&c.InstallPrefixMarker, "SPACKMON_INSTALL_PREFIX_MARKER")
	str(&c.SymbolAnalyzer, "SPACKMON_SYMBOL_ANALYZER")
	c.LogParseInterval = envutil.Duration("SPACKMON_LOG_PARSE_INTERVAL", c.LogParseInterval)
	c.LogParseBatch = envutil.Int("SPACKMON_LOG_PARSE_BATCH", c.LogParseBatch)
	c.TokenPurgeInterval = envutil.Duration("SPACKMON_TOKEN_PURGE_INTERVAL", c.TokenPurgeInterval)
	str(&c.RedisAddr, "SPACKMON_REDIS_ADDR", "REDIS_ADDR")
	str(&c.RedisChannel, "SPACKMON_REDIS_CHANNEL")
	str(&c.Neo4jURI, "SPACKMON_NEO4J_URI", "NEO4J_URI")
	str(&c.Neo4jUser, "SPACKMON_NEO4J_USER", "NEO4J_USER")
	str(&c.Neo4jPassword, "SPACKMON_NEO4J_PASSWORD", "NEO4J_PASSWORD")
	str(&c.Neo4jDatabase, "SPACKMON_NEO4J_DATABASE", "NEO4J_DATABASE")
	boolean(&c.MetricsEnabled, "SPACKMON_METRICS_ENABLED", "METRICS_ENABLED")
	boolean(&c.OtelEnabled, "SPACKMON_OTEL_ENABLED", "OTEL_ENABLED")
	str(&c.OtelEndpoint, "SPACKMON_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	str(&c.OtelHeaders, "SPACKMON_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	boolean(&c.OtelInsecure, "SPACKMON_OTEL_INSECURE", "OTEL_EXPORTER_OTLP_INSECURE")
	str(&c.Environment, "SPACKMON_ENVIRONMENT", "ENVIRONMENT")
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("db_driver must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.CascadeMode {
	case "direct", "transitive":
	default:
		return fmt.Errorf("cascade_mode must be direct or transitive, got %q", c.CascadeMode)
	}
	if c.JWTExpiresMinutes <= 0 {
		return fmt.Errorf("jwt_expires_minutes must be positive")
	}
	if !c.DisableAuthentication && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret is required unless authentication is disabled")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
