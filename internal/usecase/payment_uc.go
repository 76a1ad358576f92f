package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
	"github.com/AnneNgarachu/fitness16/internal/infra/logging"
	"github.com/AnneNgarachu/fitness16/internal/infra/metrics"
)

// Kenyan mobile numbers in international format, Safaricom/Airtel prefixes.
var phonePattern = regexp.MustCompile(`^254[17]\d{8}$`)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type InitiateInput struct {
	MemberID   *string // nil for anonymous walk-ins
	Phone      string
	PlanType   model.PlanType
	IsWalkin   bool
	WalkinName string
}

type InitiateResult struct {
	PaymentID         string
	CheckoutRequestID string
	Amount            int64
	CustomerMessage   string
	DevMode           bool
}

type PaymentUseCase interface {
	// Initiate validates the purchase, records a pending payment, and sends
	// the STK push. The push result is an acknowledgment only; completion
	// arrives via callback.
	Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error)
	// Status returns the payment for UI polling.
	Status(ctx context.Context, paymentID string) (*model.Payment, error)
	// History lists a member's payments, newest first.
	History(ctx context.Context, memberID string, limit int) ([]*model.Payment, error)
	// GatewayStatus polls the provider for a checkout's state. Separate from
	// Status, which reads the local record; the callback remains the source
	// of truth for completion.
	GatewayStatus(ctx context.Context, checkoutRequestID string) (*adapter.STKQueryResponse, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	gateway  adapter.MpesaGateway
	dev      bool
	log      *zerolog.Logger
}

// NewPaymentUseCase constructs the initiation service. dev=true short-circuits
// the gateway so downstream flows work without live credentials.
func NewPaymentUseCase(payments repository.PaymentRepository, gateway adapter.MpesaGateway, dev bool, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{payments: payments, gateway: gateway, dev: dev, log: &l}
}

func (u *paymentUC) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	if !phonePattern.MatchString(in.Phone) {
		return nil, fmt.Errorf("%w: phone must match 254XXXXXXXXX", domain.ErrValidation)
	}
	plan, ok := model.PlanByType(in.PlanType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan type %q", domain.ErrValidation, in.PlanType)
	}

	// The amount is always the catalog price. Caller-supplied amounts are not
	// part of the contract at all.
	now := time.Now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		MemberID:    in.MemberID,
		Amount:      plan.PriceKES,
		PlanType:    plan.Type,
		PhoneNumber: in.Phone,
		Status:      model.PaymentStatusPending,
		IsWalkin:    in.IsWalkin,
		WalkinName:  in.WalkinName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Persist the pending row before any external call so a crash mid-flow
	// leaves an inspectable record.
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	if u.dev {
		u.log.Info().Str("payment_id", p.ID).Msg("dev mode: gateway skipped, payment left pending")
		return &InitiateResult{PaymentID: p.ID, Amount: p.Amount, DevMode: true}, nil
	}

	accountRef := "FIT16-" + p.ID[:8]
	desc := fmt.Sprintf("Fitness16 %s membership", plan.Type)
	resp, err := u.gateway.InitiateSTKPush(ctx, in.Phone, p.Amount, accountRef, desc)
	if err != nil {
		// Gateway down is retryable-by-user; the pending row stays for
		// traceability.
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("stk push failed")
		return nil, err
	}

	if !resp.Accepted() {
		if _, ferr := u.payments.FailIfPending(ctx, nil, p.ID, resp.ResponseDescription); ferr != nil {
			u.log.Error().Err(ferr).Str("payment_id", p.ID).Msg("mark failed after rejection")
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, resp.ResponseDescription)
	}

	if err := u.payments.SetCheckoutRequestID(ctx, nil, p.ID, resp.CheckoutRequestID); err != nil {
		return nil, err
	}
	u.log.Info().
		Str("payment_id", p.ID).
		Str("checkout_request_id", resp.CheckoutRequestID).
		Str("phone", logging.Redact(in.Phone, u.dev)).
		Msg("stk push sent")

	return &InitiateResult{
		PaymentID:         p.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		Amount:            p.Amount,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

func (u *paymentUC) Status(ctx context.Context, paymentID string) (*model.Payment, error) {
	if paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.payments.FindByID(ctx, nil, paymentID)
}

func (u *paymentUC) GatewayStatus(ctx context.Context, checkoutRequestID string) (*adapter.STKQueryResponse, error) {
	if checkoutRequestID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if u.dev || u.gateway == nil {
		return nil, fmt.Errorf("%w: gateway not configured", domain.ErrGatewayUnavailable)
	}
	return u.gateway.QueryStatus(ctx, checkoutRequestID)
}

func (u *paymentUC) History(ctx context.Context, memberID string, limit int) ([]*model.Payment, error) {
	if memberID == "" {
		return nil, domain.ErrInvalidArgument
	}
	out, err := u.payments.ListByMember(ctx, nil, memberID, limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return out, nil
}
