package postgres

import (
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, member_id, amount, plan_type, phone_number, status, checkout_request_id, receipt_number, transaction_date, failure_reason, amount_verified, verified_at, is_walkin, walkin_name, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.MemberID, &p.Amount, &p.PlanType, &p.PhoneNumber, &p.Status, &p.CheckoutRequestID, &p.ReceiptNumber, &p.TransactionDate, &p.FailureReason, &p.AmountVerified, &p.VerifiedAt, &p.IsWalkin, &p.WalkinName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, member_id, amount, plan_type, phone_number, status, checkout_request_id, receipt_number, transaction_date, failure_reason, amount_verified, verified_at, is_walkin, walkin_name, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
) ON CONFLICT (id) DO UPDATE SET
  status=$6, checkout_request_id=$7, receipt_number=$8, transaction_date=$9, failure_reason=$10, amount_verified=$11, verified_at=$12, updated_at=$16;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.MemberID, p.Amount, p.PlanType, p.PhoneNumber, p.Status, p.CheckoutRequestID, p.ReceiptNumber, p.TransactionDate, p.FailureReason, p.AmountVerified, p.VerifiedAt, p.IsWalkin, p.WalkinName, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutRequestID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_request_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByMember(ctx context.Context, tx repository.Tx, memberID string, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE member_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, memberID, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) SetCheckoutRequestID(ctx context.Context, tx repository.Tx, id, checkoutRequestID string) error {
	const q = `UPDATE payments SET checkout_request_id=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, checkoutRequestID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// CompleteIfPending is the compare-and-set that makes duplicate callback
// processing safe: the status predicate and the write happen in one statement,
// so two concurrent callbacks cannot both observe "pending".
func (r *paymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, id, receiptNumber, transactionDate string, amountVerified bool, verifiedAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET status='completed',
       receipt_number=$2,
       transaction_date=$3,
       amount_verified=$4,
       verified_at=$5,
       updated_at=NOW()
 WHERE id=$1
   AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, receiptNumber, transactionDate, amountVerified, verifiedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) FailIfPending(ctx context.Context, tx repository.Tx, id, reason string) (bool, error) {
	const q = `UPDATE payments SET status='failed', failure_reason=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) CancelIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE payments SET status='cancelled', updated_at=NOW() WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
