package service

import "github.com/vibast-solutions/ms-go-proxypay/app/types"

type transitionKind int

const (
	// transitionNone: the record is already terminal; the delivery is a
	// replay and must be acknowledged without reapplying side effects.
	transitionNone transitionKind = iota
	// transitionApply: a pending record moves to decision.next.
	transitionApply
	// transitionUnknown: the incoming status is not in the table; the record
	// stays pending and the raw event is kept for inspection.
	transitionUnknown
)

type transition struct {
	kind transitionKind
	next types.PaymentStatus
}

// incomingStatusTable maps every gateway status the settlement honors to its
// target payment status. Statuses the gateway uses for intermediate progress
// ("process", "check", ...) are deliberately absent: they resolve to
// transitionUnknown and leave the record pending.
var incomingStatusTable = map[string]types.PaymentStatus{
	"paid":        types.PaymentStatusCompleted,
	"paid_over":   types.PaymentStatusCompleted,
	"fail":        types.PaymentStatusFailed,
	"failed":      types.PaymentStatusFailed,
	"cancel":      types.PaymentStatusCanceled,
	"canceled":    types.PaymentStatusCanceled,
	"refund":      types.PaymentStatusRefunded,
	"refunded":    types.PaymentStatusRefunded,
	"refund_paid": types.PaymentStatusRefunded,
}

// resolveTransition is the full state machine: (current, incoming) to the
// action to take. Statuses only move forward; the single honored edge source
// is pending, so delivery order and duplication cannot produce a second
// application of any side effect.
func resolveTransition(current types.PaymentStatus, incoming string) transition {
	if current.Terminal() {
		return transition{kind: transitionNone}
	}

	target, ok := incomingStatusTable[incoming]
	if !ok {
		return transition{kind: transitionUnknown}
	}

	return transition{kind: transitionApply, next: target}
}
