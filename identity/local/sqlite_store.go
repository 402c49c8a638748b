package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	app_metadata  TEXT NOT NULL DEFAULT '{}',
	user_metadata TEXT NOT NULL DEFAULT '{}',
	date_joined   INTEGER NOT NULL,
	last_login    INTEGER NOT NULL DEFAULT 0,
	blocked       INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore persists local accounts in a single SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

var _ UserStore = (*SQLiteStore)(nil)

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// OpenSQLiteStore opens (creating if needed) the users database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(usersSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Upsert(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = normalizeEmail(user.Email)
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	appMeta, err := json.Marshal(nonNil(user.AppMetadata))
	if err != nil {
		return fmt.Errorf("encode app metadata: %w", err)
	}
	userMeta, err := json.Marshal(nonNil(user.UserMetadata))
	if err != nil {
		return fmt.Errorf("encode user metadata: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, app_metadata, user_metadata, date_joined, last_login, blocked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email = excluded.email,
		   password_hash = excluded.password_hash,
		   app_metadata = excluded.app_metadata,
		   user_metadata = excluded.user_metadata,
		   last_login = excluded.last_login,
		   blocked = excluded.blocked`,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(appMeta),
		string(userMeta),
		toMillis(user.DateJoined),
		toMillis(user.LastLogin),
		user.Blocked,
	)
	if isUniqueViolation(err) {
		return errs.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectUsers+` WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectUsers+` WHERE id = ?`, id)
	return scanUser(row)
}

func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*User, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectUsers+` ORDER BY email LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}

const selectUsers = `SELECT id, email, password_hash, app_metadata, user_metadata, date_joined, last_login, blocked FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                 User
		appMeta, userMeta string
		joined, lastLogin int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &appMeta, &userMeta, &joined, &lastLogin, &u.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(appMeta), &u.AppMetadata); err != nil {
		return nil, fmt.Errorf("decode app metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(userMeta), &u.UserMetadata); err != nil {
		return nil, fmt.Errorf("decode user metadata: %w", err)
	}
	u.DateJoined = fromMillis(joined)
	u.LastLogin = fromMillis(lastLogin)
	return &u, nil
}

func nonNil(m identity.Metadata) identity.Metadata {
	if m == nil {
		return identity.Metadata{}
	}
	return m
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
