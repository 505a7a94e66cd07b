package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/workshopd/internal/domain"
)

// BlockoutRepo is the postgres implementation of domain.BlockoutRepository.
type BlockoutRepo struct {
	db *pgxpool.Pool
}

func NewBlockoutRepo(db *pgxpool.Pool) *BlockoutRepo {
	return &BlockoutRepo{db: db}
}

func (r *BlockoutRepo) Create(ctx context.Context, b *domain.Blockout) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO blockouts (start_date, end_date, reason, mirror_event_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		b.StartDate, b.EndDate, b.Reason, b.MirrorEventID,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert blockout: %w", err)
	}
	return nil
}

func (r *BlockoutRepo) SetMirrorEventID(ctx context.Context, id int64, eventID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE blockouts SET mirror_event_id = $2 WHERE id = $1`,
		id, eventID)
	if err != nil {
		return fmt.Errorf("set mirror event id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockoutNotFound
	}
	return nil
}

func (r *BlockoutRepo) Covering(ctx context.Context, date time.Time) ([]domain.Blockout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, start_date, end_date, reason, mirror_event_id, created_at
		FROM blockouts
		WHERE $1::date BETWEEN start_date AND end_date
		ORDER BY id`, date)
	if err != nil {
		return nil, fmt.Errorf("query blockouts: %w", err)
	}
	defer rows.Close()

	var out []domain.Blockout
	for rows.Next() {
		var b domain.Blockout
		if err := rows.Scan(&b.ID, &b.StartDate, &b.EndDate, &b.Reason, &b.MirrorEventID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blockout: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blockouts: %w", err)
	}
	return out, nil
}

func (r *BlockoutRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blockouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blockout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlockoutNotFound
	}
	return nil
}

var _ domain.BlockoutRepository = (*BlockoutRepo)(nil)
