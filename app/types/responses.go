package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WebhookResponse is the acknowledgement body the gateway expects. Success is
// only true when the delivery was fully applied (or was a harmless replay).
type WebhookResponse struct {
	Success bool `json:"success"`
}

type Payment struct {
	ID      uint64 `json:"id"`
	OrderID string `json:"order_id"`
	UserID  uint64 `json:"user_id"`

	Status     PaymentStatus `json:"status"`
	StatusName string        `json:"status_name"`
	Type       PaymentType   `json:"type"`
	TypeName   string        `json:"type_name"`

	Provider string `json:"provider"`

	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	ProviderReference string `json:"provider_reference,omitempty"`
	CheckoutURL       string `json:"checkout_url,omitempty"`
	Error             string `json:"error,omitempty"`

	Metadata map[string]string `json:"metadata"`

	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type LedgerEntry struct {
	ID      uint64 `json:"id"`
	OrderID string `json:"order_id"`

	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	BalanceAfterCents *int64 `json:"balance_after_cents,omitempty"`

	CreatedAt string `json:"created_at"`
}

type WalletResponse struct {
	UserID       uint64 `json:"user_id"`
	BalanceCents int64  `json:"balance_cents"`
	Currency     string `json:"currency"`

	Transactions []*LedgerEntry `json:"transactions"`
}

type RevenueRollupBucket struct {
	Type        PaymentType `json:"type"`
	TypeName    string      `json:"type_name"`
	Currency    string      `json:"currency"`
	Payments    int64       `json:"payments"`
	AmountCents int64       `json:"amount_cents"`
}

type RevenueRollupResponse struct {
	From    string                 `json:"from"`
	To      string                 `json:"to"`
	Buckets []*RevenueRollupBucket `json:"buckets"`
}
