package identity

import (
	"context"
	"strings"
	"time"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "admin":
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User is the canonical user record.
// PasswordHash is an encoded argon2id string and must never leave the service layer.
type User struct {
	ID           string
	Username     string
	Email        string
	EmailNorm    string
	PasswordHash string
	Role         Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserInput describes a new record. The password is already hashed.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Now          time.Time
}

// UpdateProfileInput overwrites the mutable profile fields of a record.
type UpdateProfileInput struct {
	ID       string
	Username string
	Email    string
	Now      time.Time
}

// Store is the credential persistence boundary.
//
// Contract:
//   - Lookups of missing rows return a NotFoundError.
//   - CreateUser and UpdateProfile return a ConflictError{Field: "email"} when
//     the normalized email is already taken. The storage-level unique
//     constraint is the final arbiter for that check.
//   - Every other failure is an UnavailableError.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error
	DeleteUser(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// dbNow truncates to microseconds so values round-trip through every store
// (PostgreSQL timestamptz precision) unchanged.
func dbNow(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Truncate(time.Microsecond)
}

func checkCreateInput(op string, in CreateUserInput) (CreateUserInput, error) {
	in.Username = NormalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return in, invalid(op, "username is required")
	}
	if in.Email == "" {
		return in, invalid(op, "email is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return in, invalid(op, "password hash is required")
	}
	if in.Role == "" {
		in.Role = RoleUser
	}
	if _, ok := ParseRole(string(in.Role)); !ok {
		return in, invalid(op, "unknown role")
	}
	in.Now = dbNow(in.Now)
	return in, nil
}

func checkProfileInput(op string, in UpdateProfileInput) (UpdateProfileInput, error) {
	in.Username = NormalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if strings.TrimSpace(in.ID) == "" {
		return in, invalid(op, "missing id")
	}
	if in.Username == "" {
		return in, invalid(op, "username is required")
	}
	if in.Email == "" {
		return in, invalid(op, "email is required")
	}
	in.Now = dbNow(in.Now)
	return in, nil
}
