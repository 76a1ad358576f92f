package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
	"github.com/AnneNgarachu/fitness16/internal/infra/metrics"
)

// Safaricom callback egress addresses. Only these sources are accepted in
// production.
var safaricomIPs = map[string]struct{}{
	"196.201.214.200": {},
	"196.201.214.206": {},
	"196.201.213.114": {},
	"196.201.214.207": {},
	"196.201.214.208": {},
	"196.201.213.44":  {},
	"196.201.212.127": {},
	"196.201.212.138": {},
	"196.201.212.129": {},
	"196.201.212.136": {},
	"196.201.212.74":  {},
	"196.201.212.69":  {},
}

// Ack is the JSON acknowledgment the provider expects. The body's ResultCode
// is the signal, not the HTTP status: 0 accepts the delivery, non-zero asks
// the provider to retry.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var (
	ackAccepted     = Ack{ResultCode: 0, ResultDesc: "Accepted"}
	ackDuplicate    = Ack{ResultCode: 0, ResultDesc: "Already processed"}
	ackUnauthorized = Ack{ResultCode: 1, ResultDesc: "Unauthorized"}
	ackMalformed    = Ack{ResultCode: 1, ResultDesc: "Invalid callback"}
)

// Compile-time check
var _ CallbackUseCase = (*callbackUC)(nil)

type CallbackUseCase interface {
	// HandleCallback reconciles an asynchronous provider callback. Every code
	// path ends in an acknowledgment; this method never returns an error,
	// because failing to acknowledge only triggers provider-side retries and
	// duplicate-processing risk. Anomalies go to the security log instead.
	HandleCallback(ctx context.Context, raw []byte, sourceIP string) Ack
}

type callbackUC struct {
	payments    repository.PaymentRepository
	memberships repository.MembershipRepository
	audit       repository.SecurityLogRepository
	txm         repository.TransactionManager
	production  bool
	log         *zerolog.Logger
	now         func() time.Time
}

func NewCallbackUseCase(
	payments repository.PaymentRepository,
	memberships repository.MembershipRepository,
	audit repository.SecurityLogRepository,
	txm repository.TransactionManager,
	production bool,
	logger *zerolog.Logger,
) *callbackUC {
	l := logger.With().Str("component", "CallbackUC").Logger()
	return &callbackUC{
		payments:    payments,
		memberships: memberships,
		audit:       audit,
		txm:         txm,
		production:  production,
		log:         &l,
		now:         time.Now,
	}
}

func (u *callbackUC) HandleCallback(ctx context.Context, raw []byte, sourceIP string) Ack {
	// Source verification. Rejecting with a non-zero code is intentional: an
	// accepted ack would suppress legitimate provider retries from a real IP.
	if u.production && sourceIP != "" {
		if _, ok := safaricomIPs[sourceIP]; !ok {
			u.log.Warn().Str("ip", sourceIP).Msg("callback from unauthorized source blocked")
			u.auditEvent(ctx, model.EventCallbackBlocked, nil, sourceIP, map[string]interface{}{
				"reason": "Unauthorized IP",
			})
			metrics.IncCallback("blocked")
			return ackUnauthorized
		}
	}

	cb, ok := adapter.ParseCallback(raw)
	if !ok {
		u.log.Warn().Str("ip", sourceIP).Msg("malformed callback payload")
		metrics.IncCallback("malformed")
		return ackMalformed
	}

	p, err := u.payments.FindByCheckoutRequestID(ctx, nil, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A payment this system never tracked. Accept so the provider
			// stops retrying; the anomaly is only worth a log line.
			u.log.Warn().Str("checkout_request_id", cb.CheckoutRequestID).Msg("callback for unknown checkout")
			metrics.IncCallback("unknown")
			return ackAccepted
		}
		u.log.Error().Err(err).Str("checkout_request_id", cb.CheckoutRequestID).Msg("payment lookup failed")
		metrics.IncCallback("error")
		return ackAccepted
	}

	// Fast duplicate path. The conditional update below closes the race this
	// read-only check leaves open.
	if p.Status == model.PaymentStatusCompleted {
		metrics.IncCallback("duplicate")
		return ackDuplicate
	}

	if cb.ResultCode != 0 {
		if _, err := u.payments.FailIfPending(ctx, nil, p.ID, cb.ResultDesc); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("mark failed")
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
		metrics.IncCallback("failed")
		u.log.Info().Str("payment_id", p.ID).Int("result_code", cb.ResultCode).Str("result_desc", cb.ResultDesc).Msg("payment failed")
		return ackAccepted
	}

	items := cb.CallbackMetadata.Item
	receipt := adapter.MetadataString(items, "MpesaReceiptNumber")
	txnDate := adapter.MetadataString(items, "TransactionDate")
	confirmed, hasAmount := adapter.MetadataAmount(items, "Amount")

	amountVerified := true
	if hasAmount && confirmed != p.Amount {
		// The money already moved; a mismatch is a reconciliation flag for
		// manual review, not a blocking failure.
		amountVerified = false
		metrics.IncAmountMismatch()
		u.log.Warn().Str("payment_id", p.ID).Int64("expected", p.Amount).Int64("received", confirmed).Msg("callback amount mismatch")
		u.auditEvent(ctx, model.EventAmountMismatch, p.MemberID, sourceIP, map[string]interface{}{
			"expected":   p.Amount,
			"received":   confirmed,
			"payment_id": p.ID,
		})
	}

	// Completion and the membership side effect commit together: a failed
	// membership write rolls the payment back to pending so the provider's
	// retry re-applies both.
	var applied bool
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.payments.CompleteIfPending(ctx, tx, p.ID, receipt, txnDate, amountVerified, u.now())
		if err != nil {
			return err
		}
		applied = ok
		if !ok {
			return nil
		}
		return u.applyMembershipSideEffect(ctx, tx, p, receipt, sourceIP)
	})
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("complete payment")
		metrics.IncCallback("error")
		return ackAccepted
	}
	if !applied {
		// Lost the race to a duplicate delivery, or the row had already gone
		// terminal. Either way the side effects ran (or will run) exactly
		// once elsewhere.
		metrics.IncCallback("duplicate")
		return ackDuplicate
	}
	metrics.IncPayment(string(model.PaymentStatusCompleted))
	metrics.AddPaymentRevenue(p.Amount)
	metrics.IncCallback("completed")
	return ackAccepted
}

// applyMembershipSideEffect branches on what the payment bought: a queued
// next-plan purchase marks the owning membership paid-ahead; an initial
// purchase by a registered member opens a new period; a walk-in payment has no
// membership side effect at all. Runs inside the completion transaction, so a
// returned error rolls the payment back to pending.
func (u *callbackUC) applyMembershipSideEffect(ctx context.Context, tx repository.Tx, p *model.Payment, receipt, sourceIP string) error {
	owner, err := u.memberships.FindByQueuedPaymentID(ctx, tx, p.ID)
	if err == nil && owner != nil {
		if err := u.memberships.MarkQueuedPlanPaid(ctx, tx, owner.ID); err != nil {
			return err
		}
		u.log.Info().Str("membership_id", owner.ID).Str("payment_id", p.ID).Msg("queued plan paid")
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if p.MemberID == nil {
		// Walk-ins without an account get no membership row; staff register
		// them separately.
		return nil
	}

	plan, ok := model.PlanByType(p.PlanType)
	if !ok {
		// Unknown plan on a completed payment: keep the completion, flag the
		// record for manual review instead of failing the delivery forever.
		u.log.Error().Str("payment_id", p.ID).Str("plan_type", string(p.PlanType)).Msg("completed payment references unknown plan")
		return nil
	}
	m, err := model.NewMembership(uuid.NewString(), *p.MemberID, plan, p.ID, u.now())
	if err != nil {
		return err
	}
	if err := u.memberships.Save(ctx, tx, m); err != nil {
		return err
	}
	metrics.IncMembershipCreated(string(plan.Type))
	u.log.Info().Str("membership_id", m.ID).Str("member_id", m.MemberID).Str("plan", string(plan.Type)).Msg("membership activated")
	u.auditEvent(ctx, model.EventMembershipActivated, p.MemberID, sourceIP, map[string]interface{}{
		"payment_id": p.ID,
		"plan_type":  p.PlanType,
		"receipt":    receipt,
	})
	return nil
}

func (u *callbackUC) auditEvent(ctx context.Context, eventType string, userID *string, ip string, details map[string]interface{}) {
	e := &model.SecurityEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		IPAddress: ip,
		Details:   details,
		CreatedAt: u.now(),
	}
	if err := u.audit.Append(ctx, nil, e); err != nil {
		// Audit writes never abort reconciliation.
		u.log.Error().Err(err).Str("event_type", eventType).Msg("append security log")
	}
}
