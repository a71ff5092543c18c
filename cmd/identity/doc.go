// Package identity owns the user record and its persistence.
//
// It defines the canonical User, the Store boundary used by the users
// service, and three Store implementations: PostgreSQL (pgx), SQLite
// (modernc) and an in-memory store for development and tests.
//
// Errors returned by stores carry a stable Op and one of the sentinel kinds
// declared in kinds.go, so callers can map them without string matching.
package identity
