package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/flowfly/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = "id, user_id, token, expires_at, created_at, revoked_at"

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE token = ?", token)
	return scanSession(row)
}

// RevokeSession marks a session as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL",
		revokedAt.UTC().Format(time.RFC3339), token)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions expired or revoked before the reference time.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error) {
	result, err := r.pool.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ? OR revoked_at IS NOT NULL",
		reference.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var expiresAt, createdAt string
	var revokedAt sql.NullString

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&expiresAt,
		&createdAt,
		&revokedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if revokedAt.Valid {
		ts, err := time.Parse(time.RFC3339, revokedAt.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
		}
		session.RevokedAt = &ts
	}
	return session, nil
}
