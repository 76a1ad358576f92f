package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
)

var _ repository.SecurityLogRepository = (*securityLogRepo)(nil)

type securityLogRepo struct{ pool *pgxpool.Pool }

func NewSecurityLogRepo(pool *pgxpool.Pool) *securityLogRepo {
	return &securityLogRepo{pool: pool}
}

func (r *securityLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.SecurityEvent) error {
	const q = `INSERT INTO security_logs (id, event_type, user_id, ip_address, details, created_at) VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.EventType, e.UserID, e.IPAddress, e.Details, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *securityLogRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.SecurityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, event_type, user_id, ip_address, details, created_at FROM security_logs ORDER BY created_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SecurityEvent
	for rows.Next() {
		e := &model.SecurityEvent{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &e.IPAddress, &e.Details, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}
