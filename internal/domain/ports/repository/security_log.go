package repository

import (
	"context"

	"github.com/AnneNgarachu/fitness16/internal/domain/model"
)

// SecurityLogRepository is the append-only audit sink used by the callback
// handler and friends. Writers must tolerate failures here without aborting
// the surrounding flow.
type SecurityLogRepository interface {
	Append(ctx context.Context, tx Tx, e *model.SecurityEvent) error
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.SecurityEvent, error)
}
