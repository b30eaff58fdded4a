package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/authd"
)

const uniqueViolation = "23505"

const defaultScanBatch = 500

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements authd.UserStore on PostgreSQL.
type Store struct {
	pool Pool
	now  func() time.Time
}

func New(pool Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// WithClock sets the time source used for updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

const userColumns = `id, name, email, password_hash, verified, provider,
		       last_login, last_ip, ip_history, enable_2fa, email_notification,
		       two_factor_secret, created_at, updated_at`

func (s *Store) FindByEmail(ctx context.Context, email string) (*authd.User, error) {
	email = authd.NormalizeEmail(email)
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`, email)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(authd.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return u, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*authd.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(authd.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, u *authd.User) error {
	history, err := json.Marshal(nonNil(u.IPHistory))
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "marshal ip history").Wrap(err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, verified, provider,
			last_login, last_ip, ip_history, enable_2fa, email_notification,
			two_factor_secret, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		u.ID,
		u.Name,
		authd.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Verified,
		string(u.Provider),
		nullTime(u.LastLogin),
		u.LastIP,
		history,
		u.Preferences.Enable2FA,
		u.Preferences.EmailNotification,
		nullString(u.Preferences.TwoFactorSecret),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return oops.Code("USER_EXISTS").With("id", u.ID).Wrap(authd.ErrUserExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("id", u.ID).
			Wrap(err)
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx, "update password", id,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, s.now())
}

func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.exec(ctx, "mark verified", id,
		`UPDATE users SET verified = TRUE, updated_at = $2 WHERE id = $1`,
		id, s.now())
}

func (s *Store) RecordLogin(ctx context.Context, id, lastIP string, history []authd.IPEntry, at time.Time) error {
	encoded, err := json.Marshal(nonNil(history))
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", "marshal ip history").Wrap(err)
	}
	return s.exec(ctx, "record login", id,
		`UPDATE users SET last_login = $2, last_ip = $3, ip_history = $4, updated_at = $5 WHERE id = $1`,
		id, at, lastIP, encoded, s.now())
}

func (s *Store) UpdateIPHistory(ctx context.Context, id string, history []authd.IPEntry) error {
	encoded, err := json.Marshal(nonNil(history))
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("operation", "marshal ip history").Wrap(err)
	}
	return s.exec(ctx, "update ip history", id,
		`UPDATE users SET ip_history = $2, updated_at = $3 WHERE id = $1`,
		id, encoded, s.now())
}

// ScanIPHistories pages through users by id. Each batch is fully read before
// fn runs, so fn may write back through the same pool.
func (s *Store) ScanIPHistories(ctx context.Context, batchSize int, fn func([]authd.IPHistoryRecord) error) error {
	if batchSize <= 0 {
		batchSize = defaultScanBatch
	}

	after := ""
	for {
		batch, err := s.historyPage(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		after = batch[len(batch)-1].UserID
	}
}

func (s *Store) historyPage(ctx context.Context, after string, limit int) ([]authd.IPHistoryRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ip_history FROM users WHERE id > $1 ORDER BY id LIMIT $2`,
		after, limit)
	if err != nil {
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "query ip histories").
			With("after", after).
			Wrap(err)
	}
	defer rows.Close()

	batch := make([]authd.IPHistoryRecord, 0, limit)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").With("operation", "scan ip history").Wrap(err)
		}
		entries, err := decodeHistory(raw)
		if err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").With("id", id).Wrap(err)
		}
		batch = append(batch, authd.IPHistoryRecord{UserID: id, Entries: entries})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_SCAN_FAILED").With("operation", "iterate ip histories").Wrap(err)
	}
	return batch, nil
}

func (s *Store) exec(ctx context.Context, operation, id, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", operation).
			With("id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(authd.ErrUserNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*authd.User, error) {
	var (
		u         authd.User
		provider  string
		lastLogin *time.Time
		history   []byte
		secret    *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Verified,
		&provider,
		&lastLogin,
		&u.LastIP,
		&history,
		&u.Preferences.Enable2FA,
		&u.Preferences.EmailNotification,
		&secret,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Provider = authd.Provider(provider)
	if lastLogin != nil {
		u.LastLogin = *lastLogin
	}
	if secret != nil {
		u.Preferences.TwoFactorSecret = *secret
	}
	u.IPHistory, err = decodeHistory(history)
	if err != nil {
		return nil, oops.Code("USER_DECODE_FAILED").With("id", u.ID).Wrap(err)
	}
	return &u, nil
}

func decodeHistory(raw []byte) ([]authd.IPEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []authd.IPEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func nonNil(history []authd.IPEntry) []authd.IPEntry {
	if history == nil {
		return []authd.IPEntry{}
	}
	return history
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ authd.UserStore = (*Store)(nil)
