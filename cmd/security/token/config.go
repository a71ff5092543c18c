package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	MinSecretBytes = 32
	DefaultTTL     = 2 * time.Hour
)

type Config struct {
	Secret   string        `env:"JWT_SECRET"`
	Issuer   string        `env:"JWT_ISSUER"`
	Audience string        `env:"JWT_AUDIENCE"`
	TTL      time.Duration `env:"JWT_TTL" envDefault:"2h"`
}

// FromEnv loads token settings. Presence checks happen in Validate so that
// callers get the package's typed errors.
func FromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("token config: %w", err)
	}
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Secret == "":
		return ErrSecretMissing
	case len(c.Secret) < MinSecretBytes:
		return ErrSecretTooShort
	case c.Issuer == "":
		return ErrIssuerMissing
	case c.Audience == "":
		return ErrAudienceMissing
	case c.TTL < 0:
		return ErrInvalidTTL
	}
	return nil
}
