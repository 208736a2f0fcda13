package postgresql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type SessionRepo struct {
	db db.DB
}

func NewSessionRepo(db db.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *repository.Session) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO sessions (token, user_id, role, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, s.Token, s.UserID, s.Role, s.ExpiresAt, s.CreatedAt)
	return err
}

func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*repository.Session, error) {
	var s repository.Session
	err := r.db.Get(ctx, &s, "SELECT * FROM sessions WHERE token = $1", token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeleteByToken revokes a single session. Revocation is deletion, there is no
// "revoked" flag to drift out of sync.
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteByUserID revokes every session of a user (force logout, deactivation).
func (r *SessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
