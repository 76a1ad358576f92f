package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AnneNgarachu/fitness16/internal/config"
	"github.com/AnneNgarachu/fitness16/internal/domain"
	"github.com/AnneNgarachu/fitness16/internal/domain/ports/adapter"
)

// DarajaGateway implements adapter.MpesaGateway against Safaricom's Daraja API
// using direct HTTP calls. It holds no business logic: token acquisition, STK
// push initiation and status query only.
type DarajaGateway struct {
	shortcode      string
	passkey        string
	consumerKey    string
	consumerSecret string
	callbackURL    string
	baseURL        string
	client         *http.Client
	now            func() time.Time
}

// NewDarajaGateway selects the sandbox or production base URL from config.
func NewDarajaGateway(cfg config.MpesaConfig) *DarajaGateway {
	baseURL := "https://sandbox.safaricom.co.ke"
	if cfg.Env == "production" {
		baseURL = "https://api.safaricom.co.ke"
	}
	return &DarajaGateway{
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		callbackURL:    cfg.CallbackURL,
		baseURL:        baseURL,
		client:         &http.Client{},
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// accessToken exchanges consumer credentials for a short-lived bearer token.
func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	url := g.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(g.consumerKey, g.consumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrGatewayAuth, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrGatewayAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrGatewayAuth)
	}
	return tok.AccessToken, nil
}

// password derives the Daraja request password for the given timestamp:
// base64(shortcode + passkey + timestamp).
func (g *DarajaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + timestamp))
}

func (g *DarajaGateway) timestamp() string {
	return g.now().Format("20060102150405")
}

func (g *DarajaGateway) postJSON(ctx context.Context, token, url string, payload map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d body %s", domain.ErrGatewayUnavailable, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v body %s", domain.ErrGatewayUnavailable, err, string(raw))
	}
	return nil
}

// InitiateSTKPush asks the provider to prompt the payer's handset. The
// returned response is the immediate acknowledgment only; the terminal result
// arrives via callback.
func (g *DarajaGateway) InitiateSTKPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*adapter.STKPushResponse, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := g.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": g.shortcode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            g.shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.callbackURL,
		"AccountReference":  accountReference,
		"TransactionDesc":   description,
	}

	var resp stkPushResponse
	if err := g.postJSON(ctx, token, g.baseURL+"/mpesa/stkpush/v1/processrequest", payload, &resp); err != nil {
		return nil, err
	}
	return &adapter.STKPushResponse{
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// QueryStatus polls a checkout synchronously. Independent of the callback
// path; used by UI polling only.
func (g *DarajaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*adapter.STKQueryResponse, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := g.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": g.shortcode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	var resp stkQueryResponse
	if err := g.postJSON(ctx, token, g.baseURL+"/mpesa/stkpushquery/v1/query", payload, &resp); err != nil {
		return nil, err
	}
	return &adapter.STKQueryResponse{
		ResponseCode:      resp.ResponseCode,
		ResultCode:        resp.ResultCode,
		ResultDescription: resp.ResultDesc,
	}, nil
}
