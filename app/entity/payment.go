package entity

import "time"

// Metadata keys read by the settlement and provisioning code. Every read site
// expects the exact key and a non-empty value; there is no silent fallback.
const (
	MetaPlanType         = "plan_type"
	MetaTier             = "tier"
	MetaBandwidth        = "bandwidth"
	MetaRecurrence       = "recurrence"
	MetaNetwork          = "network"
	MetaProxyUsername    = "proxy_username"
	MetaBalanceBefore    = "balance_before_cents"
	MetaBalanceAfter     = "balance_after_cents"
	MetaGatewayAmount    = "gateway_payment_amount"
	MetaLastGatewayEvent = "last_gateway_event"
)

const (
	RecurrenceOneTime   = "one_time"
	RecurrenceRecurring = "recurring"
)

type Payment struct {
	ID uint64

	OrderID string
	UserID  uint64

	Status int32
	Type   int32

	Provider string

	AmountCents int64
	Currency    string

	ProviderReference *string
	CheckoutURL       *string
	Error             *string

	Metadata map[string]string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
