package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"usersvc/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller unless WithPoolOwnership is given.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Multi-table writes run in a ReadCommitted transaction.
// - Unique violations on email_norm map to ConflictError{Field: "email"}.
type PostgresStore struct {
	pool     *pgxpool.Pool
	schema   string
	ownsPool bool
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the schema used when WithSchema is not given.
const DefaultSchema = "usersvc"

// WithSchema sets the Postgres schema used by the store (default "usersvc").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithPoolOwnership makes Close close the pool.
func WithPoolOwnership() PostgresOption {
	return func(s *PostgresStore) error {
		s.ownsPool = true
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Ping checks if a connection can be acquired.
func (s *PostgresStore) Ping(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return unavailable("identity.Ping", err)
	}
	conn.Release()
	return nil
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

// CreateUser inserts the user row and its credentials in one transaction.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	in, err := checkCreateInput(op, in)
	if err != nil {
		return User{}, err
	}

	userID, err := ids.NewULID(in.Now)
	if err != nil {
		return User{}, unavailable(op, err)
	}
	norm := NormalizeEmail(in.Email)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, unavailable(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	_, err = tx.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, username, email, email_norm, role, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		userID,
		in.Username,
		in.Email,
		norm,
		string(in.Role),
		in.Now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, unavailable(op, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+creds+` (user_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)`,
		userID, in.PasswordHash, in.Now,
	)
	if err != nil {
		return User{}, unavailable(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, unavailable(op, err)
	}

	return User{
		ID:           userID,
		Username:     in.Username,
		Email:        in.Email,
		EmailNorm:    norm,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.getUser(ctx, op, `u.id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.getUser(ctx, op, `u.email_norm = $1`, norm)
}

func (s *PostgresStore) getUser(ctx context.Context, op, where string, arg any) (User, error) {
	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	row := s.pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.email, u.email_norm, c.password_hash, u.role, u.created_at, u.updated_at
		   FROM `+users+` u
		   JOIN `+creds+` c ON c.user_id = u.id
		  WHERE `+where,
		arg,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, unavailable(op, err)
	}
	return u, nil
}

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "identity.EmailExists"

	users := pgIdent(s.schema, "users")

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+users+` WHERE email_norm = $1)`,
		NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, unavailable(op, err)
	}
	return exists, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	const op = "identity.ListUsers"

	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, u.email_norm, c.password_hash, u.role, u.created_at, u.updated_at
		   FROM `+users+` u
		   JOIN `+creds+` c ON c.user_id = u.id
		  ORDER BY u.created_at, u.id`,
	)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	out := make([]User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// UpdateProfile overwrites username/email and refreshes updated_at.
func (s *PostgresStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	in, err := checkProfileInput(op, in)
	if err != nil {
		return User{}, err
	}
	if !ids.Valid(in.ID) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, unavailable(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE `+users+`
		    SET username = $2, email = $3, email_norm = $4, updated_at = $5
		  WHERE id = $1`,
		in.ID, in.Username, in.Email, NormalizeEmail(in.Email), in.Now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, unavailable(op, err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	row := tx.QueryRow(ctx,
		`SELECT u.id, u.username, u.email, u.email_norm, c.password_hash, u.role, u.created_at, u.updated_at
		   FROM `+users+` u
		   JOIN `+creds+` c ON c.user_id = u.id
		  WHERE u.id = $1`,
		in.ID,
	)
	out, err := scanUser(row)
	if err != nil {
		return User{}, unavailable(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, unavailable(op, err)
	}
	return out, nil
}

// UpdatePasswordHash replaces the stored hash and refreshes both updated_at columns.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	id = strings.TrimSpace(id)
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}
	if !ids.Valid(id) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	now = dbNow(now)

	users := pgIdent(s.schema, "users")
	creds := pgIdent(s.schema, "user_credentials")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return unavailable(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE `+creds+` SET password_hash = $2, updated_at = $3 WHERE user_id = $1`,
		id, passwordHash, now,
	)
	if err != nil {
		return unavailable(op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}

	if _, err := tx.Exec(ctx, `UPDATE `+users+` SET updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return unavailable(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// DeleteUser removes the user; credentials cascade.
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	const op = "identity.DeleteUser"

	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return NotFoundError{Op: op, Resource: "user"}
	}

	users := pgIdent(s.schema, "users")

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+users+` WHERE id = $1`, id)
	if err != nil {
		return unavailable(op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.EmailNorm,
		&u.PasswordHash,
		&role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch {
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
