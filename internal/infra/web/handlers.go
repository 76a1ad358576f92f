package web

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/model"
	"github.com/AnneNgarachu/fitness16/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}

// writeDomainError maps domain sentinels onto the structured error contract.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrGatewayRejected):
		writeError(w, http.StatusBadRequest, "MPESA_ERROR", err.Error())
	case errors.Is(err, domain.ErrNoActiveMembership):
		writeError(w, http.StatusBadRequest, "NO_MEMBERSHIP", "No active membership found")
	case errors.Is(err, domain.ErrPlanAlreadyQueued):
		writeError(w, http.StatusBadRequest, "PLAN_QUEUED", err.Error())
	case errors.Is(err, domain.ErrAlreadyPaid):
		writeError(w, http.StatusBadRequest, "ALREADY_PAID", "Cannot cancel - plan already paid. Contact admin for refund.")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, domain.ErrGatewayAuth), errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "MPESA_UNAVAILABLE", "Payment provider unavailable, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

// sourceIP extracts the caller address: first X-Forwarded-For hop when behind
// the proxy, else the socket peer.
func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type initiateRequest struct {
	MemberID   *string        `json:"member_id"`
	Phone      string         `json:"phone"`
	PlanType   model.PlanType `json:"plan_type"`
	IsWalkin   bool           `json:"is_walkin"`
	WalkinName string         `json:"walkin_name"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !model.ValidPlanType(req.PlanType) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown plan type")
		return
	}

	sess := sessionFrom(r.Context())
	// Members pay for themselves; staff may initiate for any member or for a
	// walk-in without an account.
	if !sess.IsStaff() {
		id := sess.UserID()
		req.MemberID = &id
		req.IsWalkin = false
	}

	res, err := s.paymentUC.Initiate(r.Context(), usecase.InitiateInput{
		MemberID:   req.MemberID,
		Phone:      req.Phone,
		PlanType:   req.PlanType,
		IsWalkin:   req.IsWalkin,
		WalkinName: req.WalkinName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]interface{}{
		"success":    true,
		"payment_id": res.PaymentID,
		"amount":     res.Amount,
	}
	if res.DevMode {
		body["dev_mode"] = true
		body["message"] = "DEV MODE: M-Pesa not configured. Payment created as pending."
	} else {
		body["checkout_request_id"] = res.CheckoutRequestID
		body["message"] = "STK Push sent. Check your phone."
	}
	writeJSON(w, http.StatusOK, body)
}

// handlePlans serves the fixed catalog so the frontend never hardcodes prices.
func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	plans := model.Plans()
	sort.Slice(plans, func(i, j int) bool { return plans[i].DurationDays < plans[j].DurationDays })

	out := make([]map[string]interface{}, 0, len(plans))
	for _, p := range plans {
		out = append(out, map[string]interface{}{
			"plan_type":     p.Type,
			"price_kes":     p.PriceKES,
			"duration_days": p.DurationDays,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": out})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "payment_id required")
		return
	}
	p, err := s.paymentUC.Status(r.Context(), paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"payment": map[string]interface{}{
			"id":            p.ID,
			"status":        p.Status,
			"amount":        p.Amount,
			"plan_type":     p.PlanType,
			"mpesa_receipt": p.ReceiptNumber,
			"created_at":    p.CreatedAt,
			"updated_at":    p.UpdatedAt,
		},
	})
}

// handleGatewayQuery asks the provider directly; the local record stays
// untouched, completion only ever comes through the callback.
func (s *Server) handleGatewayQuery(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.URL.Query().Get("checkout_request_id")
	if checkoutID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "checkout_request_id required")
		return
	}
	resp, err := s.paymentUC.GatewayStatus(r.Context(), checkoutID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"result_code": resp.ResultCode,
		"result_desc": resp.ResultDescription,
	})
}

func (s *Server) handleSecurityLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		limit, _ = strconv.Atoi(q)
	}
	events, err := s.auditUC.Recent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": events})
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	memberID := sess.UserID()
	if sess.IsStaff() {
		if q := r.URL.Query().Get("member_id"); q != "" {
			memberID = q
		}
	}
	payments, err := s.paymentUC.History(r.Context(), memberID, 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": payments})
}

// handleCallback is the provider-facing webhook. It always answers HTTP 200
// with a body-level result code; the reconciliation use case guarantees no
// code path raises past it.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusOK, usecase.Ack{ResultCode: 1, ResultDesc: "Invalid callback"})
		return
	}
	ack := s.callbackUC.HandleCallback(r.Context(), raw, sourceIP(r))
	writeJSON(w, http.StatusOK, ack)
}

type queuePlanRequest struct {
	MemberID string         `json:"member_id"`
	Phone    string         `json:"phone"`
	PlanType model.PlanType `json:"plan_type"`
}

func (s *Server) handleQueuePlan(w http.ResponseWriter, r *http.Request) {
	var req queuePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.MemberID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "member_id required")
		return
	}
	if !model.ValidPlanType(req.PlanType) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown plan type")
		return
	}

	res, err := s.queueUC.QueueNextPlan(r.Context(), req.MemberID, req.Phone, req.PlanType)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]interface{}{
		"success":      true,
		"payment_id":   res.PaymentID,
		"amount":       res.Amount,
		"current_plan": res.CurrentPlan,
		"next_plan":    res.NextPlan,
		"starts_on":    res.StartsOn.Format("2006-01-02"),
	}
	if res.DevMode {
		body["dev_mode"] = true
		body["message"] = "DEV MODE: M-Pesa not configured. Plan queued as pending."
	} else {
		body["checkout_request_id"] = res.CheckoutRequestID
		body["message"] = "STK Push sent. Plan will start after current plan expires."
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleQueuedPlan(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	memberID := sess.UserID()
	if sess.IsStaff() {
		memberID = r.URL.Query().Get("member_id")
		if memberID == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "member_id required")
			return
		}
	}

	view, err := s.queueUC.QueuedPlan(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveMembership) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"queued_plan": nil})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_plan":     view.CurrentPlan,
		"expiry_date":      view.ExpiryDate.Format("2006-01-02"),
		"queued_plan":      view.QueuedPlan,
		"queued_plan_paid": view.QueuedPaid,
	})
}

func (s *Server) handleCancelQueuedPlan(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "member_id required")
		return
	}
	if err := s.queueUC.CancelQueuedPlan(r.Context(), memberID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Queued plan cancelled"})
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	report, err := s.rolloverUC.Run(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"activated": report.Activated,
		"expired":   report.Expired,
		"errors":    report.Errors,
		"timestamp": report.RanAt,
	})
}
