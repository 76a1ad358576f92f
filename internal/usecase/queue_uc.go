package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
	"github.com/AnneNgarachu/fitness16/internal/infra/metrics"
)

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

type QueueResult struct {
	PaymentID         string
	CheckoutRequestID string
	Amount            int64
	CurrentPlan       model.PlanType
	NextPlan          model.PlanType
	StartsOn          time.Time
	DevMode           bool
}

type QueuedPlanView struct {
	CurrentPlan model.PlanType
	ExpiryDate  time.Time
	QueuedPlan  *model.PlanType
	QueuedPaid  bool
}

type QueueUseCase interface {
	// QueueNextPlan pre-sells the next plan while the current membership is
	// still active. Activation is deferred to the daily rollover.
	QueueNextPlan(ctx context.Context, memberID, phone string, planType model.PlanType) (*QueueResult, error)
	// QueuedPlan returns the member's queued-plan state for display.
	QueuedPlan(ctx context.Context, memberID string) (*QueuedPlanView, error)
	// CancelQueuedPlan clears an unpaid queued plan and cancels its pending
	// payment. Paid plans require manual refund handling and cannot be
	// cancelled here.
	CancelQueuedPlan(ctx context.Context, memberID string) error
}

type queueUC struct {
	memberships repository.MembershipRepository
	payments    repository.PaymentRepository
	gateway     adapter.MpesaGateway
	dev         bool
	log         *zerolog.Logger
}

func NewQueueUseCase(
	memberships repository.MembershipRepository,
	payments repository.PaymentRepository,
	gateway adapter.MpesaGateway,
	dev bool,
	logger *zerolog.Logger,
) *queueUC {
	l := logger.With().Str("component", "QueueUC").Logger()
	return &queueUC{memberships: memberships, payments: payments, gateway: gateway, dev: dev, log: &l}
}

func (u *queueUC) QueueNextPlan(ctx context.Context, memberID, phone string, planType model.PlanType) (*QueueResult, error) {
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone must match 254XXXXXXXXX", domain.ErrValidation)
	}
	plan, ok := model.PlanByType(planType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan type %q", domain.ErrValidation, planType)
	}

	membership, err := u.memberships.FindActiveByMember(ctx, nil, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveMembership
		}
		return nil, err
	}
	if membership.NextPlanType != nil && membership.NextPlanPaid {
		return nil, fmt.Errorf("%w: %s plan queued", domain.ErrPlanAlreadyQueued, *membership.NextPlanType)
	}

	now := time.Now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		MemberID:    &memberID,
		Amount:      plan.PriceKES,
		PlanType:    plan.Type,
		PhoneNumber: phone,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	// Record intent on the membership before the external call, mirroring the
	// initiation flow's crash discipline. next_plan_paid stays false until the
	// callback confirms.
	if err := u.memberships.SetQueuedPlan(ctx, nil, membership.ID, plan.Type, p.ID); err != nil {
		return nil, err
	}

	startsOn := membership.ExpiryDate.AddDate(0, 0, 1)
	if u.dev {
		u.log.Info().Str("payment_id", p.ID).Str("membership_id", membership.ID).Msg("dev mode: plan queued, gateway skipped")
		return &QueueResult{
			PaymentID:   p.ID,
			Amount:      p.Amount,
			CurrentPlan: membership.PlanType,
			NextPlan:    plan.Type,
			StartsOn:    startsOn,
			DevMode:     true,
		}, nil
	}

	accountRef := "FIT16-UP-" + p.ID[:8]
	desc := fmt.Sprintf("Fitness16 %s - starts after current plan", plan.Type)
	resp, err := u.gateway.InitiateSTKPush(ctx, phone, p.Amount, accountRef, desc)
	if err != nil {
		u.rollbackQueue(ctx, membership.ID, p.ID, err.Error())
		return nil, err
	}
	if !resp.Accepted() {
		// Roll the queue fields back so the member can retry cleanly.
		u.rollbackQueue(ctx, membership.ID, p.ID, resp.ResponseDescription)
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, resp.ResponseDescription)
	}

	if err := u.payments.SetCheckoutRequestID(ctx, nil, p.ID, resp.CheckoutRequestID); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", p.ID).Str("membership_id", membership.ID).Str("next_plan", string(plan.Type)).Msg("next plan queued, stk push sent")

	return &QueueResult{
		PaymentID:         p.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Amount:            p.Amount,
		CurrentPlan:       membership.PlanType,
		NextPlan:          plan.Type,
		StartsOn:          startsOn,
	}, nil
}

func (u *queueUC) rollbackQueue(ctx context.Context, membershipID, paymentID, reason string) {
	if _, err := u.payments.FailIfPending(ctx, nil, paymentID, reason); err != nil {
		u.log.Error().Err(err).Str("payment_id", paymentID).Msg("mark queued payment failed")
	}
	metrics.IncPayment(string(model.PaymentStatusFailed))
	if err := u.memberships.ClearQueuedPlan(ctx, nil, membershipID); err != nil {
		u.log.Error().Err(err).Str("membership_id", membershipID).Msg("clear queue fields after rejection")
	}
}

func (u *queueUC) QueuedPlan(ctx context.Context, memberID string) (*QueuedPlanView, error) {
	membership, err := u.memberships.FindActiveByMember(ctx, nil, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveMembership
		}
		return nil, err
	}
	return &QueuedPlanView{
		CurrentPlan: membership.PlanType,
		ExpiryDate:  membership.ExpiryDate,
		QueuedPlan:  membership.NextPlanType,
		QueuedPaid:  membership.NextPlanPaid,
	}, nil
}

func (u *queueUC) CancelQueuedPlan(ctx context.Context, memberID string) error {
	membership, err := u.memberships.FindActiveByMember(ctx, nil, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoActiveMembership
		}
		return err
	}
	if membership.NextPlanPaid {
		return domain.ErrAlreadyPaid
	}

	if err := u.memberships.ClearQueuedPlan(ctx, nil, membership.ID); err != nil {
		return err
	}
	if membership.NextPlanPaymentID != nil {
		if _, err := u.payments.CancelIfPending(ctx, nil, *membership.NextPlanPaymentID); err != nil {
			u.log.Error().Err(err).Str("payment_id", *membership.NextPlanPaymentID).Msg("cancel queued payment")
		} else {
			metrics.IncPayment(string(model.PaymentStatusCancelled))
		}
	}
	u.log.Info().Str("membership_id", membership.ID).Msg("queued plan cancelled")
	return nil
}
