package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Product kinds understood by the upstream account API.
const (
	ProductResidential = "residential"
	ProductDatacenter  = "datacenter"
	ProductMobile      = "mobile"
)

var ErrUnknownProduct = errors.New("unknown proxy product")

func ValidateProduct(product string) error {
	switch product {
	case ProductResidential, ProductDatacenter, ProductMobile:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProduct, product)
	}
}

type EvomiConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// EvomiClient talks to the proxy vendor's account-balance API.
type EvomiClient struct {
	cfg    EvomiConfig
	client *http.Client
}

func NewEvomiClient(cfg EvomiConfig) *EvomiClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &EvomiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Balance is the account's full balance snapshot, in megabytes per product.
type Balance struct {
	Residential int64 `json:"residential"`
	Datacenter  int64 `json:"datacenter"`
	Mobile      int64 `json:"mobile"`
}

// AddBalance grants megabytes to one product bucket of a subuser account and
// returns the updated balance snapshot.
func (c *EvomiClient) AddBalance(ctx context.Context, username, product string, megabytes int64) (*Balance, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("evomi api key is not configured")
	}
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("evomi username is required")
	}
	if err := ValidateProduct(product); err != nil {
		return nil, err
	}
	if megabytes <= 0 {
		return nil, fmt.Errorf("balance grant must be positive, got %d", megabytes)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"username": username,
		"product":  product,
		"balance":  megabytes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/reseller/subusers/balance", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("evomi balance grant failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Balance Balance `json:"balance"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	return &parsed.Balance, nil
}
