package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/repository"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

type AuditUseCase interface {
	// Recent returns the newest security events for the admin review screen.
	Recent(ctx context.Context, limit int) ([]*model.SecurityEvent, error)
}

type auditUC struct {
	audit repository.SecurityLogRepository
	log   *zerolog.Logger
}

func NewAuditUseCase(audit repository.SecurityLogRepository, logger *zerolog.Logger) *auditUC {
	l := logger.With().Str("component", "AuditUC").Logger()
	return &auditUC{audit: audit, log: &l}
}

func (u *auditUC) Recent(ctx context.Context, limit int) ([]*model.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return u.audit.ListRecent(ctx, nil, limit)
}
