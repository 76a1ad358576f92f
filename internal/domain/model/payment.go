package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // STK push created; awaiting callback
	PaymentStatusCompleted PaymentStatus = "completed" // provider confirmed the charge
	PaymentStatusFailed    PaymentStatus = "failed"    // provider declined or the push failed
	PaymentStatusCancelled PaymentStatus = "cancelled" // queued-plan cancellation before payment
)

// Terminal reports whether s admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// Payment records a single attempted M-Pesa transaction. Rows are never
// deleted; terminal states are reached exactly once.
type Payment struct {
	ID                string  // UUID
	MemberID          *string // nil for anonymous walk-ins
	Amount            int64   // whole KES, always the catalog price at creation
	PlanType          PlanType
	PhoneNumber       string
	Status            PaymentStatus
	CheckoutRequestID string // provider correlation id, set after initiation
	ReceiptNumber     string // M-Pesa receipt, set on success
	TransactionDate   string // provider timestamp from callback metadata
	FailureReason     string
	AmountVerified    bool // callback amount matched our record
	VerifiedAt        *time.Time
	IsWalkin          bool
	WalkinName        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
