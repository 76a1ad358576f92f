//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
	"github.com/AnneNgarachu/fitness16/internal/usecase"
)

func TestAuditUseCase_Recent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored events", func(t *testing.T) {
		repo := NewMockSecurityLogRepo()
		_ = repo.Append(ctx, nil, &model.SecurityEvent{ID: "ev-1", EventType: model.EventAmountMismatch})

		events, err := usecase.NewAuditUseCase(repo, newTestLogger()).Recent(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 1 || events[0].ID != "ev-1" {
			t.Errorf("unexpected events %v", events)
		}
	})

	t.Run("clamps the limit", func(t *testing.T) {
		repo := NewMockSecurityLogRepo()
		var gotLimit int
		repo.ListRecentFunc = func(ctx context.Context, tx repository.Tx, limit int) ([]*model.SecurityEvent, error) {
			gotLimit = limit
			return nil, nil
		}
		uc := usecase.NewAuditUseCase(repo, newTestLogger())

		_, _ = uc.Recent(ctx, 0)
		if gotLimit != 50 {
			t.Errorf("zero limit should default to 50, got %d", gotLimit)
		}
		_, _ = uc.Recent(ctx, 10000)
		if gotLimit != 200 {
			t.Errorf("oversized limit should clamp to 200, got %d", gotLimit)
		}
	})
}
