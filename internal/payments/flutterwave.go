package payments

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// Flutterwave talks to the Flutterwave v3 gateway. Amounts travel as
// plain decimal strings, no kobo scaling.
type Flutterwave struct {
	secretKey  string
	verifyHash string
	baseURL    string
	client     *http.Client
}

func NewFlutterwave(secretKey, verifyHash string) *Flutterwave {
	return &Flutterwave{
		secretKey:  secretKey,
		verifyHash: verifyHash,
		baseURL:    "https://api.flutterwave.com/v3",
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func NewFlutterwaveWithBaseURL(secretKey, verifyHash, baseURL string) *Flutterwave {
	f := NewFlutterwave(secretKey, verifyHash)
	f.baseURL = baseURL
	return f
}

func (f *Flutterwave) Name() string {
	return "flutterwave"
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *Flutterwave) Initialize(order *types.Order, customerEmail, callbackURL string) (*InitResult, error) {
	reference := "FLW_" + order.OrderID
	payload := map[string]any{
		"tx_ref":       reference,
		"amount":       order.TotalAmount.String(),
		"currency":     "NGN",
		"redirect_url": callbackURL,
		"customer": map[string]any{
			"email": customerEmail,
		},
		"meta": map[string]any{
			"order_id": order.OrderID,
		},
	}

	data, err := f.request(http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}

	var body struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("flutterwave: decoding payment response: %w", err)
	}

	return &InitResult{
		Reference:  reference,
		PaymentURL: body.Link,
	}, nil
}

func (f *Flutterwave) Verify(reference string) (*VerifyResult, error) {
	data, err := f.request(http.MethodGet, "/transactions/verify_by_reference?tx_ref="+reference, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		TxRef    string          `json:"tx_ref"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("flutterwave: decoding verify response: %w", err)
	}

	return &VerifyResult{
		Reference: body.TxRef,
		Success:   body.Status == "successful",
		Amount:    body.Amount,
		Currency:  body.Currency,
		Reason:    body.Status,
	}, nil
}

// VerifyWebhookSignature checks the verif-hash header against the
// configured secret hash.
func (f *Flutterwave) VerifyWebhookSignature(signature string) bool {
	return subtle.ConstantTimeCompare([]byte(f.verifyHash), []byte(signature)) == 1
}

func (f *Flutterwave) request(method, endpoint string, payload any) (json.RawMessage, error) {
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

	req, err := http.NewRequest(method, f.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flutterwave: request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope flutterwaveEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("flutterwave: decoding response: %w", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("flutterwave: %s", envelope.Message)
	}
	return envelope.Data, nil
}
