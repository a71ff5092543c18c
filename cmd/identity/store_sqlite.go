package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"usersvc/cmd/identity/ids"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over an embedded SQLite database (modernc, no cgo).
// Timestamps are stored as RFC 3339 text in UTC.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and enables foreign keys.
// Use ":memory:" for a throwaway database; the pool is pinned to a single
// connection so every query sees the same database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("identity: empty sqlite path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewSQLiteStore wraps an open database. The store owns db and closes it on Close.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil sqlite db")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("identity.Ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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
	ts := sqliteTime(in.Now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, email_norm, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Username, in.Email, norm, string(in.Role), ts, ts,
	)
	if err != nil {
		if sqliteIsUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, unavailable(op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_credentials (user_id, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		userID, in.PasswordHash, ts, ts,
	)
	if err != nil {
		return User{}, unavailable(op, err)
	}

	if err := tx.Commit(); err != nil {
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

const sqliteSelectUser = `SELECT u.id, u.username, u.email, u.email_norm, c.password_hash, u.role, u.created_at, u.updated_at
  FROM users u
  JOIN user_credentials c ON c.user_id = u.id`

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.getUser(ctx, op, sqliteSelectUser+` WHERE u.id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.getUser(ctx, op, sqliteSelectUser+` WHERE u.email_norm = ?`, norm)
}

func (s *SQLiteStore) getUser(ctx context.Context, op, query string, arg any) (User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, unavailable(op, err)
	}
	return u, nil
}

func (s *SQLiteStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email_norm = ?`,
		NormalizeEmail(email),
	).Scan(&n)
	if err != nil {
		return false, unavailable("identity.EmailExists", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	const op = "identity.ListUsers"

	rows, err := s.db.QueryContext(ctx, sqliteSelectUser+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]User, 0, 16)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
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

func (s *SQLiteStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	in, err := checkProfileInput(op, in)
	if err != nil {
		return User{}, err
	}
	if !ids.Valid(in.ID) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, email_norm = ?, updated_at = ? WHERE id = ?`,
		in.Username, in.Email, NormalizeEmail(in.Email), sqliteTime(in.Now), in.ID,
	)
	if err != nil {
		if sqliteIsUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, unavailable(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return User{}, unavailable(op, err)
	} else if n == 0 {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	out, err := scanSQLiteUser(tx.QueryRowContext(ctx, sqliteSelectUser+` WHERE u.id = ?`, in.ID))
	if err != nil {
		return User{}, unavailable(op, err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, unavailable(op, err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	id = strings.TrimSpace(id)
	if strings.TrimSpace(passwordHash) == "" {
		return invalid(op, "password hash is required")
	}
	if !ids.Valid(id) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	ts := sqliteTime(dbNow(now))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_credentials SET password_hash = ?, updated_at = ? WHERE user_id = ?`,
		passwordHash, ts, id,
	)
	if err != nil {
		return unavailable(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return unavailable(op, err)
	} else if n == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = ? WHERE id = ?`, ts, id); err != nil {
		return unavailable(op, err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	const op = "identity.DeleteUser"

	id = strings.TrimSpace(id)
	if !ids.Valid(id) {
		return NotFoundError{Op: op, Resource: "user"}
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row sqliteScanner) (User, error) {
	var (
		u                  User
		role               string
		createdAt, updated string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.EmailNorm, &u.PasswordHash, &role, &createdAt, &updated); err != nil {
		return User{}, err
	}

	var err error
	if u.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return User{}, err
	}
	if u.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func sqliteIsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		if code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE") {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
