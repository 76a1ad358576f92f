package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
	"github.com/AnneNgarachu/fitness16/internal/infra/metrics"
)

// Compile-time check
var _ RolloverUseCase = (*rolloverUC)(nil)

// RolloverReport summarizes one sweep. Per-row failures land in Errors
// without aborting the batch.
type RolloverReport struct {
	Activated int       `json:"activated"`
	Expired   int       `json:"expired"`
	Errors    []string  `json:"errors,omitempty"`
	RanAt     time.Time `json:"timestamp"`
}

type RolloverUseCase interface {
	// Run performs the daily sweep: activate due queued plans, then expire
	// lapsed memberships. Safe to re-invoke on the same day; both passes
	// re-select only rows that have not yet transitioned.
	Run(ctx context.Context) (*RolloverReport, error)
}

type rolloverUC struct {
	memberships repository.MembershipRepository
	log         *zerolog.Logger
	now         func() time.Time
}

func NewRolloverUseCase(memberships repository.MembershipRepository, logger *zerolog.Logger) *rolloverUC {
	l := logger.With().Str("component", "RolloverUC").Logger()
	return &rolloverUC{memberships: memberships, log: &l, now: time.Now}
}

func (u *rolloverUC) Run(ctx context.Context) (*RolloverReport, error) {
	now := u.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	report := &RolloverReport{RanAt: now}

	// Activation pass. Each row is handled independently: one bad row must
	// not block the rest of the batch.
	due, err := u.memberships.ListDueForActivation(ctx, nil, today)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("fetch due memberships: %v", err))
	}
	for _, m := range due {
		if err := m.ActivateQueued(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("activate for %s: %v", m.MemberID, err))
			continue
		}
		if err := u.memberships.Save(ctx, nil, m); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("save activation for %s: %v", m.MemberID, err))
			continue
		}
		report.Activated++
		u.log.Info().Str("membership_id", m.ID).Str("member_id", m.MemberID).Str("plan", string(m.PlanType)).Msg("queued plan activated")
	}

	// Expiry pass. The repository predicate excludes rows with a queued plan,
	// so a paid-ahead membership is never flipped to expired.
	expired, err := u.memberships.ExpireLapsed(ctx, nil, today)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("expire lapsed: %v", err))
	}
	report.Expired = expired

	metrics.IncRolloverRun()
	metrics.AddRolloverActivated(report.Activated)
	metrics.AddRolloverExpired(report.Expired)
	metrics.AddRolloverErrors(len(report.Errors))

	u.log.Info().Int("activated", report.Activated).Int("expired", report.Expired).Int("errors", len(report.Errors)).Msg("rollover completed")
	return report, nil
}
