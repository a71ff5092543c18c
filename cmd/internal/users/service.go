package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"usersvc/cmd/identity"
	"usersvc/cmd/internal/patch"
	"usersvc/cmd/security/password"
)

// PatchFields are the paths a patch may target, as "/<name>".
var PatchFields = []string{"username", "email"}

// Hasher is satisfied by *password.Hasher.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, encoded string) (password.Outcome, error)
}

// TokenIssuer is satisfied by *token.Issuer.
type TokenIssuer interface {
	Issue(userID, email, role string) (string, time.Time, error)
}

type Service struct {
	log    *slog.Logger
	store  identity.Store
	hasher Hasher
	tokens TokenIssuer
	now    func() time.Time

	// dummyHash is verified against when a login names an unknown email so
	// that both failure paths cost one argon2 computation.
	dummyHash string
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the use cases to their collaborators. It computes one
// throwaway hash up front.
func NewService(store identity.Store, hasher Hasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if store == nil || hasher == nil || tokens == nil {
		return nil, errors.New("users: nil dependency")
	}

	s := &Service{
		log:    slog.Default(),
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	h, err := hasher.Hash(context.Background(), "dummy-password-for-timing-only")
	if err != nil {
		return nil, err
	}
	s.dummyHash = h
	return s, nil
}

func invalidCredentials(op string) error {
	return identity.OpError{Op: op, Kind: identity.ErrInvalidCredentials}
}

// Create registers a new user with role User.
func (s *Service) Create(ctx context.Context, in CreateInput) (View, error) {
	in = in.normalized()
	if errs := validateCreate(in); len(errs) > 0 {
		return View{}, errs
	}
	return s.create(ctx, "users.Create", in, identity.RoleUser)
}

func (s *Service) create(ctx context.Context, op string, in CreateInput, role identity.Role) (View, error) {
	// Fast path only; the store's unique index decides races.
	taken, err := s.store.EmailExists(ctx, in.Email)
	if err != nil {
		return View{}, err
	}
	if taken {
		return View{}, identity.ConflictError{Op: op, Field: "email"}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return View{}, err
	}

	u, err := s.store.CreateUser(ctx, identity.CreateUserInput{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Now:          s.now(),
	})
	if err != nil {
		return View{}, err
	}

	s.log.Info("users.created", "user_id", u.ID, "role", string(u.Role))
	return toView(u), nil
}

// Authenticate checks credentials and issues a token carrying the stored role.
// Unknown email, wrong password and an unreadable stored hash all yield the
// same InvalidCredentials error.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (LoginResult, error) {
	const op = "users.Authenticate"

	in.Email = strings.TrimSpace(in.Email)
	if errs := validateLogin(in); len(errs) > 0 {
		return LoginResult{}, errs
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if !identity.IsNotFound(err) {
			return LoginResult{}, err
		}
		if _, verr := s.hasher.Verify(ctx, in.Password, s.dummyHash); verr != nil {
			return LoginResult{}, verr
		}
		s.log.Info("users.login.failed", "reason", "not_found")
		return LoginResult{}, invalidCredentials(op)
	}

	if err := s.checkPassword(ctx, u, in.Password, "users.login.failed"); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return LoginResult{}, invalidCredentials(op)
		}
		return LoginResult{}, err
	}

	tok, exp, err := s.tokens.Issue(u.ID, u.Email, string(u.Role))
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info("users.login.ok", "user_id", u.ID)
	return LoginResult{Token: tok, ExpiresAt: exp, User: toView(u)}, nil
}

func (s *Service) checkPassword(ctx context.Context, u identity.User, plaintext, event string) error {
	out, err := s.hasher.Verify(ctx, plaintext, u.PasswordHash)
	if err != nil {
		return err
	}
	switch out {
	case password.Match:
		return nil
	case password.Malformed:
		s.log.Warn(event, "user_id", u.ID, "reason", "malformed_hash")
	default:
		s.log.Info(event, "user_id", u.ID, "reason", "bad_password")
	}
	return identity.ErrInvalidCredentials
}

// Get returns the public view of one user.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	return toView(u), nil
}

// List returns every user ordered by creation time.
func (s *Service) List(ctx context.Context) ([]View, error) {
	us, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(us))
	for _, u := range us {
		out = append(out, toView(u))
	}
	return out, nil
}

// Update overwrites username and email.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (View, error) {
	in = in.normalized()
	if errs := validateUpdate(in); len(errs) > 0 {
		return View{}, errs
	}

	if _, err := s.store.GetUserByID(ctx, id); err != nil {
		return View{}, err
	}
	return s.persistProfile(ctx, id, in)
}

// Patch applies JSON Patch operations to the user's full-update
// representation and persists the result only if it passes the same rules as
// Update. A nil ops slice is rejected; an empty one changes nothing.
func (s *Service) Patch(ctx context.Context, id string, ops []patch.Operation) (View, error) {
	if errs := patch.Validate(ops, PatchFields...); len(errs) > 0 {
		return View{}, errs
	}

	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return View{}, err
	}
	if len(ops) == 0 {
		return toView(u), nil
	}

	next, errs := applyPatch(toUpdateInput(u), ops)
	if len(errs) > 0 {
		return View{}, errs
	}
	return s.persistProfile(ctx, u.ID, next)
}

func (s *Service) persistProfile(ctx context.Context, id string, in UpdateInput) (View, error) {
	u, err := s.store.UpdateProfile(ctx, identity.UpdateProfileInput{
		ID:       id,
		Username: in.Username,
		Email:    in.Email,
		Now:      s.now(),
	})
	if err != nil {
		return View{}, err
	}
	s.log.Info("users.updated", "user_id", u.ID)
	return toView(u), nil
}

// ChangePassword replaces the stored hash after verifying the current password.
func (s *Service) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	const op = "users.ChangePassword"

	if errs := validateChangePassword(in); len(errs) > 0 {
		return errs
	}

	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkPassword(ctx, u, in.CurrentPassword, "users.password_change.failed"); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return invalidCredentials(op)
		}
		return err
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, u.ID, hash, s.now()); err != nil {
		return err
	}

	s.log.Info("users.password_changed", "user_id", u.ID)
	return nil
}

// Delete removes a user and its credentials.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info("users.deleted", "user_id", id)
	return nil
}

// SeedAdmin creates an Admin account unless the email is already registered.
// It reports whether a user was created.
func (s *Service) SeedAdmin(ctx context.Context, in CreateInput) (bool, error) {
	const op = "users.SeedAdmin"

	in = in.normalized()
	if errs := validateCreate(in); len(errs) > 0 {
		return false, errs
	}

	_, err := s.create(ctx, op, in, identity.RoleAdmin)
	switch {
	case err == nil:
		return true, nil
	case identity.IsConflict(err):
		s.log.Info("users.seed_admin.exists")
		return false, nil
	default:
		return false, err
	}
}
