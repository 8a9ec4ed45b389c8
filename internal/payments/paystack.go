package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// Paystack talks to the Paystack gateway. Amounts go over the wire in
// kobo (hundredths), so every amount is scaled by 100 on the way out and
// back.
type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(secretKey string) *Paystack {
	return &Paystack{
		secretKey: secretKey,
		baseURL:   "https://api.paystack.co",
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewPaystackWithBaseURL points the client at a different host. Used by
// tests against a local stub.
func NewPaystackWithBaseURL(secretKey, baseURL string) *Paystack {
	p := NewPaystack(secretKey)
	p.baseURL = baseURL
	return p
}

func (p *Paystack) Name() string {
	return "paystack"
}

var kobo = decimal.NewFromInt(100)

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) Initialize(order *types.Order, customerEmail, callbackURL string) (*InitResult, error) {
	payload := map[string]any{
		"email":        customerEmail,
		"amount":       order.TotalAmount.Mul(kobo).IntPart(),
		"currency":     "NGN",
		"reference":    "PSK_" + order.OrderID,
		"callback_url": callbackURL,
		"metadata": map[string]any{
			"order_id":    order.OrderID,
			"order_total": order.TotalAmount.String(),
		},
	}

	data, err := p.request(http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var body struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("paystack: decoding initialize response: %w", err)
	}

	return &InitResult{
		Reference:  body.Reference,
		PaymentURL: body.AuthorizationURL,
	}, nil
}

func (p *Paystack) Verify(reference string) (*VerifyResult, error) {
	data, err := p.request(http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Status          string `json:"status"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		Reference       string `json:"reference"`
		GatewayResponse string `json:"gateway_response"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("paystack: decoding verify response: %w", err)
	}

	return &VerifyResult{
		Reference: body.Reference,
		Success:   body.Status == "success",
		Amount:    decimal.NewFromInt(body.Amount).Div(kobo),
		Currency:  body.Currency,
		Reason:    body.GatewayResponse,
	}, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header: an
// HMAC-SHA512 of the raw body keyed with the secret key.
func (p *Paystack) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *Paystack) request(method, endpoint string, payload any) (json.RawMessage, error) {
	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, p.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack: request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("paystack: decoding response: %w", err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("paystack: %s", envelope.Message)
	}
	return envelope.Data, nil
}
