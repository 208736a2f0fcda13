package postgresql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type ProfileRepo struct {
	db db.DB
}

func NewProfileRepo(db db.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) Create(ctx context.Context, userID string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO profiles (user_id, created_at, updated_at) VALUES ($1, $2, $2)
    `, userID, now)
	return err
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*repository.Profile, error) {
	var p repository.Profile
	err := r.db.Get(ctx, &p, "SELECT * FROM profiles WHERE user_id = $1", userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) Update(ctx context.Context, p *repository.Profile) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE profiles
        SET phone = $2, gender = $3, address = $4, birthdate = $5, photo = $6, updated_at = $7
        WHERE user_id = $1
    `, p.UserID, p.Phone, p.Gender, p.Address, p.Birthdate, p.Photo, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

