package model

import "time"

// Security/audit event types recorded around the payment flow.
const (
	EventCallbackBlocked     = "MPESA_CALLBACK_BLOCKED"
	EventAmountMismatch      = "MPESA_AMOUNT_MISMATCH"
	EventMembershipActivated = "MEMBERSHIP_ACTIVATED"
)

// SecurityEvent is an append-only audit record. Anomalies the reconciliation
// handler refuses to fail on (blocked IPs, amount mismatches) land here for
// manual review instead of surfacing as errors.
type SecurityEvent struct {
	ID        string // UUID
	EventType string
	UserID    *string
	IPAddress string
	Details   map[string]interface{} // serialized as JSONB
	CreatedAt time.Time
}
