package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
)

var _ repository.MembershipRepository = (*membershipRepo)(nil)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

const membershipColumns = `id, member_id, plan_type, start_date, expiry_date, status, payment_id, next_plan_type, next_plan_paid, next_plan_payment_id, created_at, updated_at`

func scanMembership(row pgx.Row) (*model.Membership, error) {
	m := &model.Membership{}
	if err := row.Scan(&m.ID, &m.MemberID, &m.PlanType, &m.StartDate, &m.ExpiryDate, &m.Status, &m.PaymentID, &m.NextPlanType, &m.NextPlanPaid, &m.NextPlanPaymentID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *membershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (
  id, member_id, plan_type, start_date, expiry_date, status, payment_id, next_plan_type, next_plan_paid, next_plan_payment_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  plan_type=$3, start_date=$4, expiry_date=$5, status=$6, payment_id=$7, next_plan_type=$8, next_plan_paid=$9, next_plan_payment_id=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.MemberID, m.PlanType, m.StartDate, m.ExpiryDate, m.Status, m.PaymentID, m.NextPlanType, m.NextPlanPaid, m.NextPlanPaymentID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	q := `SELECT ` + membershipColumns + ` FROM memberships WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

func (r *membershipRepo) FindActiveByMember(ctx context.Context, tx repository.Tx, memberID string) (*model.Membership, error) {
	q := `SELECT ` + membershipColumns + ` FROM memberships WHERE member_id=$1 AND status='active' LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, memberID)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

func (r *membershipRepo) FindByQueuedPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Membership, error) {
	q := `SELECT ` + membershipColumns + ` FROM memberships WHERE next_plan_payment_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanMembership(row)
}

func (r *membershipRepo) SetQueuedPlan(ctx context.Context, tx repository.Tx, membershipID string, planType model.PlanType, paymentID string) error {
	const q = `UPDATE memberships SET next_plan_type=$2, next_plan_paid=FALSE, next_plan_payment_id=$3, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, membershipID, planType, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) ClearQueuedPlan(ctx context.Context, tx repository.Tx, membershipID string) error {
	const q = `UPDATE memberships SET next_plan_type=NULL, next_plan_paid=FALSE, next_plan_payment_id=NULL, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, membershipID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) MarkQueuedPlanPaid(ctx context.Context, tx repository.Tx, membershipID string) error {
	const q = `UPDATE memberships SET next_plan_paid=TRUE, updated_at=NOW() WHERE id=$1 AND next_plan_type IS NOT NULL;`
	_, err := execSQL(ctx, r.pool, tx, q, membershipID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) ListDueForActivation(ctx context.Context, tx repository.Tx, today time.Time) ([]*model.Membership, error) {
	const q = `SELECT ` + membershipColumns + ` FROM memberships WHERE expiry_date < $1 AND next_plan_type IS NOT NULL AND next_plan_paid ORDER BY expiry_date ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, today)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ExpireLapsed deliberately excludes rows with a queued plan: those belong to
// the activation pass, whichever order the two passes run in.
func (r *membershipRepo) ExpireLapsed(ctx context.Context, tx repository.Tx, today time.Time) (int, error) {
	const q = `UPDATE memberships SET status='expired', updated_at=NOW() WHERE expiry_date < $1 AND status='active' AND next_plan_type IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, today)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}
