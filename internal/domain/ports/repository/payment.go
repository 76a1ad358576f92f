package repository

import (
	"context"
	"time"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByCheckoutRequestID(ctx context.Context, tx Tx, checkoutRequestID string) (*model.Payment, error)
	ListByMember(ctx context.Context, tx Tx, memberID string, limit int) ([]*model.Payment, error)

	// SetCheckoutRequestID records the provider correlation id after a push is
	// accepted.
	SetCheckoutRequestID(ctx context.Context, tx Tx, id, checkoutRequestID string) error

	// CompleteIfPending atomically transitions a pending payment to completed,
	// recording receipt metadata. Returns false when the row was not pending,
	// which is how duplicate callbacks are suppressed without a read-then-write
	// race.
	CompleteIfPending(ctx context.Context, tx Tx, id, receiptNumber, transactionDate string, amountVerified bool, verifiedAt time.Time) (bool, error)

	// FailIfPending transitions a pending payment to failed with a reason.
	// Terminal rows are left untouched and false is returned.
	FailIfPending(ctx context.Context, tx Tx, id, reason string) (bool, error)

	// CancelIfPending transitions a pending payment to cancelled.
	CancelIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}
