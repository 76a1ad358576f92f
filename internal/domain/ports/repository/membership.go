package repository

import (
	"context"
	"time"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
)

type MembershipRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Membership) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Membership, error)
	FindActiveByMember(ctx context.Context, tx Tx, memberID string) (*model.Membership, error)

	// FindByQueuedPaymentID locates the membership holding the given payment as
	// its queued next-plan purchase, if any.
	FindByQueuedPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Membership, error)

	// SetQueuedPlan writes the next_plan_* columns on an active membership.
	SetQueuedPlan(ctx context.Context, tx Tx, membershipID string, planType model.PlanType, paymentID string) error

	// ClearQueuedPlan resets the next_plan_* columns to null/false.
	ClearQueuedPlan(ctx context.Context, tx Tx, membershipID string) error

	// MarkQueuedPlanPaid flips next_plan_paid once the queued payment completes.
	MarkQueuedPlanPaid(ctx context.Context, tx Tx, membershipID string) error

	// ListDueForActivation returns memberships past expiry that hold a paid
	// queued plan.
	ListDueForActivation(ctx context.Context, tx Tx, today time.Time) ([]*model.Membership, error)

	// ExpireLapsed bulk-flips active memberships past expiry with no queued
	// plan to expired, returning the number of rows touched.
	ExpireLapsed(ctx context.Context, tx Tx, today time.Time) (int, error)
}
