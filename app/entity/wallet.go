package entity

import "time"

const (
	LedgerTypeDeposit  = "deposit"
	LedgerTypePurchase = "purchase"
)

type Wallet struct {
	ID           uint64
	UserID       uint64
	BalanceCents int64
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LedgerTransaction is an append-only ledger entry. BalanceAfterCents is set
// only for entries that moved the wallet balance.
type LedgerTransaction struct {
	ID uint64

	UserID  uint64
	OrderID string

	Type        string
	AmountCents int64
	Currency    string

	BalanceAfterCents *int64

	CreatedAt time.Time
}
