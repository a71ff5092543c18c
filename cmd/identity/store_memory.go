package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"usersvc/cmd/identity/ids"
)

// MemoryStore is a process-local Store for development and tests.
// All state is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]User   // id -> record
	byEmail map[string]string // email_norm -> id
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, unavailable(op, err)
	}
	in, err := checkCreateInput(op, in)
	if err != nil {
		return User{}, err
	}

	id, err := ids.NewULID(in.Now)
	if err != nil {
		return User{}, unavailable(op, err)
	}

	norm := NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{
		ID:           id,
		Username:     in.Username,
		Email:        in.Email,
		EmailNorm:    norm,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	s.users[id] = u
	s.byEmail[norm] = id
	return u, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, unavailable(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(id)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, unavailable(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.users[id], nil
}

func (s *MemoryStore) EmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("identity.EmailExists", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byEmail[NormalizeEmail(email)]
	return ok, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("identity.ListUsers", err)
	}

	s.mu.Lock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	if err := ctx.Err(); err != nil {
		return User{}, unavailable(op, err)
	}
	in, err := checkProfileInput(op, in)
	if err != nil {
		return User{}, err
	}

	norm := NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[in.ID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if owner, taken := s.byEmail[norm]; taken && owner != u.ID {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	delete(s.byEmail, u.EmailNorm)
	u.Username = in.Username
	u.Email = in.Email
	u.EmailNorm = norm
	u.UpdatedAt = in.Now
	s.users[u.ID] = u
	s.byEmail[norm] = u.ID
	return u, nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(id)]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = dbNow(now)
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	const op = "identity.DeleteUser"

	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.TrimSpace(id)]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	delete(s.users, u.ID)
	delete(s.byEmail, u.EmailNorm)
	return nil
}
