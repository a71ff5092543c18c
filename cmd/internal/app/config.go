package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"usersvc/cmd/security/password"
	"usersvc/cmd/security/token"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "USERSVC_"

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"auto"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`
	MaxBodyBytes      int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`

	// Store selects the backend. Empty means postgres when DatabaseURL is
	// set and memory otherwise.
	Store       string `env:"STORE"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA" envDefault:"usersvc"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"usersvc.db"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	// If true, /readyz returns 503 unless a database-backed store is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`

	// Optional Admin account created at startup when the email is unused.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	Password password.Config
	Token    token.Config
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	pw, err := password.FromEnv(EnvPrefix)
	if err != nil {
		return Config{}, err
	}
	cfg.Password = pw

	tok, err := token.FromEnv(EnvPrefix)
	if err != nil {
		return Config{}, err
	}
	cfg.Token = tok

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.AdminEmail = strings.TrimSpace(c.AdminEmail)
	c.AdminUsername = strings.TrimSpace(c.AdminUsername)
	if c.Store == "" {
		c.Store = StoreMemory
		if c.DatabaseURL != "" {
			c.Store = StorePostgres
		}
	}
}

// Validate checks cross-field rules. Token settings are checked separately
// by ValidateSecurityConfig.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("config: USERSVC_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: USERSVC_DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown USERSVC_STORE %q", c.Store)
	}

	if c.DBMinConns < 0 || c.DBMaxConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return errors.New("config: invalid db connection limits")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("config: USERSVC_ADMIN_EMAIL and USERSVC_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func (c Config) dbBacked() bool { return c.Store == StoreSQLite || c.Store == StorePostgres }
