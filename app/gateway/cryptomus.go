package gateway

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
)

const ProviderCryptomus = "cryptomus"

var (
	ErrMissingSignature      = errors.New("webhook signature is missing")
	ErrInvalidSignature      = errors.New("webhook signature is invalid")
	ErrVerifierNotConfigured = errors.New("webhook verifier secret is not configured")
	ErrMalformedPayload      = errors.New("webhook payload is malformed")
)

type CryptomusConfig struct {
	MerchantID    string
	PaymentAPIKey string
	BaseURL       string
	AllowedIPs    []string
	HTTPTimeout   time.Duration
}

type Cryptomus struct {
	cfg    CryptomusConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewCryptomus(cfg CryptomusConfig) *Cryptomus {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cryptomus.com"
	}

	return &Cryptomus{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("cryptomus-gateway"),
	}
}

type InvoiceInput struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Description string
	BuyerEmail  string
	Network     string

	SuccessURL string
	ReturnURL  string
	WebhookURL string
}

type InvoiceOutput struct {
	ProviderReference string
	CheckoutURL       string
}

// WebhookEvent is the parsed, signature-checked gateway notification.
type WebhookEvent struct {
	UUID            string `json:"uuid"`
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	Network         string `json:"network"`
	TxID            string `json:"txid"`
	PaymentAmount   string `json:"payment_amount"`
	PaymentCurrency string `json:"payment_currency"`

	Signature string `json:"-"`
	Raw       []byte `json:"-"`
}

// CreateInvoice registers a one-time payment with the gateway and returns the
// checkout redirect URL plus the gateway-assigned invoice id.
func (c *Cryptomus) CreateInvoice(ctx context.Context, input *InvoiceInput) (*InvoiceOutput, error) {
	if strings.TrimSpace(c.cfg.MerchantID) == "" || strings.TrimSpace(c.cfg.PaymentAPIKey) == "" {
		return nil, errors.New("cryptomus merchant credentials are not configured")
	}

	amount := decimal.New(input.AmountCents, -2).StringFixed(2)
	payload := map[string]string{
		"order_id":     input.OrderID,
		"amount":       amount,
		"currency":     strings.ToUpper(strings.TrimSpace(input.Currency)),
		"network":      strings.TrimSpace(input.Network),
		"url_success":  input.SuccessURL,
		"url_return":   input.ReturnURL,
		"url_callback": input.WebhookURL,
	}
	if email := strings.TrimSpace(input.BuyerEmail); email != "" {
		payload["buyer_email"] = email
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		payload["description"] = desc
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/payment", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", c.cfg.MerchantID)
	req.Header.Set("sign", signBody(body, c.cfg.PaymentAPIKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cryptomus create invoice failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		State  int `json:"state"`
		Result struct {
			UUID string `json:"uuid"`
			URL  string `json:"url"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	if parsed.State != 0 {
		return nil, fmt.Errorf("cryptomus create invoice rejected: state=%d body=%s", parsed.State, string(respBody))
	}
	if strings.TrimSpace(parsed.Result.UUID) == "" || strings.TrimSpace(parsed.Result.URL) == "" {
		return nil, errors.New("cryptomus create invoice response missing uuid or url")
	}

	return &InvoiceOutput{
		ProviderReference: parsed.Result.UUID,
		CheckoutURL:       parsed.Result.URL,
	}, nil
}

// VerifyWebhook authenticates a raw webhook body. The signature is the keyed
// hash of the body with the sign field itself removed; a missing secret fails
// closed. The remote IP is checked against the configured allow-list but a
// mismatch is only logged: the signature is the gate, the IP check is
// defense in depth.
func (c *Cryptomus) VerifyWebhook(body []byte, remoteIP string) (*WebhookEvent, error) {
	if strings.TrimSpace(c.cfg.PaymentAPIKey) == "" {
		return nil, ErrVerifierNotConfigured
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	signRaw, ok := fields["sign"]
	if !ok {
		return nil, ErrMissingSignature
	}
	var claimed string
	if err := json.Unmarshal(signRaw, &claimed); err != nil || strings.TrimSpace(claimed) == "" {
		return nil, ErrMissingSignature
	}

	delete(fields, "sign")
	unsigned, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	expected := signBody(unsigned, c.cfg.PaymentAPIKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(claimed)))) != 1 {
		return nil, ErrInvalidSignature
	}

	c.checkOrigin(remoteIP)

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	event.OrderID = strings.TrimSpace(event.OrderID)
	event.Status = strings.ToLower(strings.TrimSpace(event.Status))
	if event.OrderID == "" || event.Status == "" {
		return nil, fmt.Errorf("%w: order_id and status are required", ErrMalformedPayload)
	}
	event.Signature = strings.ToLower(strings.TrimSpace(claimed))
	event.Raw = body

	return &event, nil
}

func (c *Cryptomus) checkOrigin(remoteIP string) {
	if len(c.cfg.AllowedIPs) == 0 || strings.TrimSpace(remoteIP) == "" {
		return
	}
	for _, allowed := range c.cfg.AllowedIPs {
		if strings.TrimSpace(allowed) == remoteIP {
			return
		}
	}
	c.logger.WithField("remote_ip", remoteIP).Warn("Webhook from unlisted origin passed signature check")
}

// signBody implements the gateway's signature scheme:
// md5(base64(body) + apiKey), hex-encoded.
func signBody(body []byte, apiKey string) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + apiKey))
	return hex.EncodeToString(sum[:])
}

// SignWebhookBody signs an already-marshaled webhook payload (without its
// sign field). Exposed for tests and for replaying stored callbacks.
func SignWebhookBody(unsigned []byte, apiKey string) string {
	return signBody(unsigned, apiKey)
}
