package postgresql

import (
	"context"

	"github.com/sewain/backend/internal/db"
	"github.com/sewain/backend/internal/repository"
)

type ReportRepo struct {
	db db.DB
}

func NewReportRepo(db db.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Create(ctx context.Context, rep *repository.Report) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO reports (id, reporter_id, reported_user_id, reason, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, rep.ID, rep.ReporterID, rep.ReportedUserID, rep.Reason, rep.CreatedAt)
	return err
}

func (r *ReportRepo) GetAll(ctx context.Context) ([]*repository.ReportWithNames, error) {
	var reports []*repository.ReportWithNames
	err := r.db.Select(ctx, &reports, `
        SELECT rp.id, reporter.name AS reporter_name, reported.name AS reported_name,
               rp.reason, rp.created_at
        FROM reports rp
        JOIN users reporter ON reporter.id = rp.reporter_id
        JOIN users reported ON reported.id = rp.reported_user_id
        ORDER BY rp.created_at DESC
    `)
	return reports, err
}

func (r *ReportRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM reports WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}
