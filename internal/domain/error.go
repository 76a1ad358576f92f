package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrValidation         = errors.New("validation failed")
	ErrNoActiveMembership = errors.New("no active membership")
	ErrPlanAlreadyQueued  = errors.New("a paid plan is already queued")
	ErrAlreadyPaid        = errors.New("queued plan already paid; cancellation requires a manual refund")
	ErrTerminalPayment    = errors.New("payment is already in a terminal state")

	// Gateway errors
	ErrGatewayAuth        = errors.New("gateway authentication failed")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrGatewayRejected    = errors.New("gateway rejected the push request")

	// Persistence errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid SQL execution context")
)
