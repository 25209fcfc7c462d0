package types

// PaymentStatus mirrors the lifecycle stored on payment rows. The only legal
// transitions are pending to one of the four terminal statuses.
type PaymentStatus int32

const (
	PaymentStatusUnspecified PaymentStatus = 0
	PaymentStatusPending     PaymentStatus = 1
	PaymentStatusCompleted   PaymentStatus = 2
	PaymentStatusFailed      PaymentStatus = 3
	PaymentStatusCanceled    PaymentStatus = 4
	PaymentStatusRefunded    PaymentStatus = 5
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusPending:
		return "pending"
	case PaymentStatusCompleted:
		return "completed"
	case PaymentStatusFailed:
		return "failed"
	case PaymentStatusCanceled:
		return "canceled"
	case PaymentStatusRefunded:
		return "refunded"
	default:
		return "unspecified"
	}
}

// Terminal reports whether no further event may change the status.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

type PaymentType int32

const (
	PaymentTypeUnspecified   PaymentType = 0
	PaymentTypeProxyPurchase PaymentType = 1
	PaymentTypeWalletDeposit PaymentType = 2
)

func (t PaymentType) String() string {
	switch t {
	case PaymentTypeProxyPurchase:
		return "proxy_purchase"
	case PaymentTypeWalletDeposit:
		return "wallet_deposit"
	default:
		return "unspecified"
	}
}
