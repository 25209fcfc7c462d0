package entity

import "time"

// ProvisioningGrant records a purchased proxy plan on the user's account.
// A grant is written even when the upstream balance call fails; the failure
// is kept on ProvisioningError for manual reconciliation.
type ProvisioningGrant struct {
	ID uint64

	UserID  uint64
	OrderID string

	PlanType string
	Tier     string

	BandwidthMB int64
	IsActive    bool

	PurchasedAt time.Time
	ExpiresAt   *time.Time

	ProvisioningError *string
	BalanceSnapshot   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
