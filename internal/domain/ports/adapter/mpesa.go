package adapter

import "context"

// STKPushResponse is the provider's immediate acknowledgment of a push
// request. Completion arrives later through the asynchronous callback, never
// through this response.
type STKPushResponse struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// Accepted reports whether the provider accepted the push for processing.
func (r *STKPushResponse) Accepted() bool { return r.ResponseCode == "0" }

// STKQueryResponse is the synchronous status of a checkout, used for UI
// polling independently of the callback path.
type STKQueryResponse struct {
	ResponseCode      string
	ResultCode        string
	ResultDescription string
}

// MpesaGateway is the hex port for the mobile-money provider. It carries no
// business logic and no retry policy; callers treat failures as
// retryable-by-user.
type MpesaGateway interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error)
}
