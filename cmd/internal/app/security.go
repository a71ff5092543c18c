package app

import (
	"errors"
	"fmt"

	"usersvc/cmd/security/token"
)

// ValidateSecurityConfig refuses to start without complete token settings.
func ValidateSecurityConfig(cfg Config) error {
	if err := cfg.Token.Validate(); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return fmt.Errorf("security policy: %sJWT_SECRET is required", EnvPrefix)
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("security policy: %sJWT_SECRET is too short (min %d bytes)", EnvPrefix, token.MinSecretBytes)
		case errors.Is(err, token.ErrIssuerMissing):
			return fmt.Errorf("security policy: %sJWT_ISSUER is required", EnvPrefix)
		case errors.Is(err, token.ErrAudienceMissing):
			return fmt.Errorf("security policy: %sJWT_AUDIENCE is required", EnvPrefix)
		default:
			return fmt.Errorf("security policy: %w", err)
		}
	}
	if cfg.Password.MaxLength > 0 && cfg.Password.MaxLength < 16 {
		return errors.New("security policy: password max length below 16")
	}
	return nil
}
