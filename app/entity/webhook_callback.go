package entity

import "time"

const (
	WebhookCallbackProcessed int32 = 10
	WebhookCallbackRejected  int32 = 20
)

// WebhookCallback logs every inbound gateway notification, accepted or not.
type WebhookCallback struct {
	ID uint64

	PaymentID *uint64

	Provider    string
	OrderID     string
	Signature   string
	PayloadJSON string
	Status      int32
	Error       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
