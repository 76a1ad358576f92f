//go:build !integration

package model_test

import (
	"testing"
	"time"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
)

func TestNewMembership(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	plan, _ := model.PlanByType(model.PlanMonth)

	m, err := model.NewMembership("mem-1", "member-1", plan, "pay-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != model.MembershipStatusActive {
		t.Errorf("expected active, got %s", m.Status)
	}
	if want := now.AddDate(0, 0, 30); !m.ExpiryDate.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, m.ExpiryDate)
	}
	if m.PaymentID == nil || *m.PaymentID != "pay-1" {
		t.Error("expected opening payment recorded")
	}

	if _, err := model.NewMembership("", "member-1", plan, "pay-1", now); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestMembership_ActivateQueued(t *testing.T) {
	base := func() *model.Membership {
		next := model.PlanWeek
		pid := "pay-2"
		return &model.Membership{
			ID:                "mem-1",
			MemberID:          "member-1",
			PlanType:          model.PlanMonth,
			StartDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:        time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			Status:            model.MembershipStatusActive,
			NextPlanType:      &next,
			NextPlanPaid:      true,
			NextPlanPaymentID: &pid,
		}
	}

	t.Run("new period starts the day after the old expiry", func(t *testing.T) {
		m := base()
		if err := m.ActivateQueued(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		wantExpiry := time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC)
		if !m.StartDate.Equal(wantStart) || !m.ExpiryDate.Equal(wantExpiry) {
			t.Errorf("got period %v..%v, want %v..%v", m.StartDate, m.ExpiryDate, wantStart, wantExpiry)
		}
		if m.PlanType != model.PlanWeek {
			t.Errorf("expected plan week, got %s", m.PlanType)
		}
		if m.NextPlanType != nil || m.NextPlanPaid || m.NextPlanPaymentID != nil {
			t.Error("expected queue fields cleared")
		}
		if m.PaymentID == nil || *m.PaymentID != "pay-2" {
			t.Error("expected the queued payment to own the new period")
		}
	})

	t.Run("refuses unpaid or empty queues", func(t *testing.T) {
		m := base()
		m.NextPlanPaid = false
		if err := m.ActivateQueued(); err == nil {
			t.Error("expected error for unpaid queue")
		}

		m = base()
		m.NextPlanType = nil
		if err := m.ActivateQueued(); err == nil {
			t.Error("expected error for empty queue")
		}
	})
}

func TestPlanCatalog(t *testing.T) {
	cases := []struct {
		plan  model.PlanType
		price int64
		days  int
	}{
		{model.PlanDay, 500, 1},
		{model.PlanWeek, 2000, 7},
		{model.PlanMonth, 5500, 30},
		{model.PlanQuarterly, 15000, 90},
		{model.PlanSemiAnnual, 30000, 180},
		{model.PlanAnnual, 54000, 365},
	}
	for _, tc := range cases {
		p, ok := model.PlanByType(tc.plan)
		if !ok {
			t.Fatalf("plan %s missing from catalog", tc.plan)
		}
		if p.PriceKES != tc.price || p.DurationDays != tc.days {
			t.Errorf("%s: got %d KES / %d days, want %d / %d", tc.plan, p.PriceKES, p.DurationDays, tc.price, tc.days)
		}
	}
	if model.ValidPlanType("gold") {
		t.Error("unknown plan type must not validate")
	}
	if len(model.Plans()) != len(cases) {
		t.Errorf("catalog size %d, want %d", len(model.Plans()), len(cases))
	}
}

func TestPaymentStatus_Terminal(t *testing.T) {
	if model.PaymentStatusPending.Terminal() {
		t.Error("pending is not terminal")
	}
	for _, s := range []model.PaymentStatus{
		model.PaymentStatusCompleted,
		model.PaymentStatusFailed,
		model.PaymentStatusCancelled,
	} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
