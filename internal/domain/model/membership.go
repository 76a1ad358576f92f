package model

import (
	"time"

	"github.com/AnneNgarachu/fitness16/internal/domain"
)

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusExpired MembershipStatus = "expired"
)

// Membership is a member's entitlement window. One row per paid period: fresh
// purchases after expiry insert a new row rather than reusing the old one, so
// the table doubles as an audit history. The next_plan_* columns hold at most
// one paid-ahead plan that the daily rollover activates once this period ends.
type Membership struct {
	ID        string // UUID
	MemberID  string
	PlanType  PlanType
	StartDate time.Time // date precision
	ExpiryDate time.Time
	Status    MembershipStatus
	PaymentID *string // payment that opened this period

	NextPlanType      *PlanType
	NextPlanPaid      bool
	NextPlanPaymentID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMembership opens a fresh active period starting now.
func NewMembership(id, memberID string, plan Plan, paymentID string, now time.Time) (*Membership, error) {
	if id == "" || memberID == "" || plan.Type == "" {
		return nil, domain.ErrInvalidArgument
	}
	start := now
	expiry := start.AddDate(0, 0, plan.DurationDays)
	return &Membership{
		ID:         id,
		MemberID:   memberID,
		PlanType:   plan.Type,
		StartDate:  start,
		ExpiryDate: expiry,
		Status:     MembershipStatusActive,
		PaymentID:  &paymentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ActivateQueued rewrites the row for the queued period. The new period starts
// the day after the old expiry, not the day the rollover happened to run, so a
// late cron neither shortens nor extends the entitlement.
func (m *Membership) ActivateQueued() error {
	if m.NextPlanType == nil || !m.NextPlanPaid {
		return domain.ErrInvalidArgument
	}
	plan, ok := PlanByType(*m.NextPlanType)
	if !ok {
		return domain.ErrInvalidArgument
	}
	start := m.ExpiryDate.AddDate(0, 0, 1)
	m.PlanType = plan.Type
	m.StartDate = start
	m.ExpiryDate = start.AddDate(0, 0, plan.DurationDays)
	m.Status = MembershipStatusActive
	m.PaymentID = m.NextPlanPaymentID
	m.NextPlanType = nil
	m.NextPlanPaid = false
	m.NextPlanPaymentID = nil
	return nil
}
