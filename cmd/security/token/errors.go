package token

import "errors"

// Construction errors. These are startup failures, never per-request ones.
var (
	ErrSecretMissing   = errors.New("token secret missing")
	ErrSecretTooShort  = errors.New("token secret too short")
	ErrIssuerMissing   = errors.New("token issuer missing")
	ErrAudienceMissing = errors.New("token audience missing")
	ErrInvalidTTL      = errors.New("token ttl must be positive")
)

// Verification errors.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)
