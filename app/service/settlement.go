package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
	"github.com/vibast-solutions/ms-go-proxypay/app/gateway"
	"github.com/vibast-solutions/ms-go-proxypay/app/metrics"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

type eventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

type callbackRepository interface {
	Create(ctx context.Context, callback *entity.WebhookCallback) error
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx repository.DBTX) error) error
}

type webhookVerifier interface {
	VerifyWebhook(body []byte, remoteIP string) (*gateway.WebhookEvent, error)
}

type walletTransactor interface {
	Credit(ctx context.Context, tx repository.DBTX, userID uint64, amountCents int64, currency, orderID string) (*CreditResult, error)
}

type proxyProvisioner interface {
	Grant(ctx context.Context, payment *entity.Payment) (*entity.ProvisioningGrant, error)
}

// SettlementService applies verified gateway webhooks to payment records.
// It is the only writer of payment status after creation.
type SettlementService struct {
	paymentRepo  paymentRepository
	ledgerRepo   ledgerRepository
	eventRepo    eventRepository
	callbackRepo callbackRepository
	wallet       walletTransactor
	provisioner  proxyProvisioner
	verifier     webhookVerifier
	tx           txRunner
	logger       logrus.FieldLogger
}

func NewSettlementService(
	paymentRepo paymentRepository,
	ledgerRepo ledgerRepository,
	eventRepo eventRepository,
	callbackRepo callbackRepository,
	wallet walletTransactor,
	provisioner proxyProvisioner,
	verifier webhookVerifier,
	tx txRunner,
) *SettlementService {
	return &SettlementService{
		paymentRepo:  paymentRepo,
		ledgerRepo:   ledgerRepo,
		eventRepo:    eventRepo,
		callbackRepo: callbackRepo,
		wallet:       wallet,
		provisioner:  provisioner,
		verifier:     verifier,
		tx:           tx,
		logger:       factory.NewModuleLogger("settlement-service"),
	}
}

// ApplyWebhook authenticates and settles one gateway delivery. Deliveries are
// at-least-once and unordered; replays of a terminal order return success
// without touching state. The transition and its financial side effect commit
// in one database transaction; the proxy provisioning call runs after commit
// and reports failure without rolling the completed payment back.
func (s *SettlementService) ApplyWebhook(ctx context.Context, body []byte, remoteIP string) (*entity.Payment, error) {
	event, err := s.verifier.VerifyWebhook(body, remoteIP)
	if err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
		s.persistCallback(ctx, nil, "", claimedSignature(body), body, entity.WebhookCallbackRejected, err.Error())
		return nil, err
	}

	payment, err := s.paymentRepo.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderIDAmbiguous) {
			metrics.WebhooksReceivedTotal.WithLabelValues("rejected").Inc()
			s.logger.WithField("order_id", event.OrderID).Error("Order id resolves to multiple payments")
			s.persistCallback(ctx, nil, event.OrderID, event.Signature, body, entity.WebhookCallbackRejected, "order id is ambiguous")
			return nil, fmt.Errorf("%w: %s", ErrOrderAmbiguous, event.OrderID)
		}
		return nil, err
	}
	if payment == nil {
		metrics.WebhooksReceivedTotal.WithLabelValues("not_found").Inc()
		s.persistCallback(ctx, nil, event.OrderID, event.Signature, body, entity.WebhookCallbackRejected, "no payment for order id")
		return nil, ErrPaymentNotFound
	}

	if types.PaymentStatus(payment.Status).Terminal() {
		metrics.WebhooksReceivedTotal.WithLabelValues("replay").Inc()
		s.persistCallback(ctx, &payment.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, "")
		return payment, nil
	}

	decision := resolveTransition(types.PaymentStatus(payment.Status), event.Status)
	switch decision.kind {
	case transitionUnknown:
		return s.stashUnknownEvent(ctx, event, body)
	case transitionApply:
		return s.applyTransition(ctx, event, body, decision.next)
	default:
		// Terminal was already handled above; keep the replay semantics if
		// the table ever says otherwise.
		s.persistCallback(ctx, &payment.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, "")
		return payment, nil
	}
}

// stashUnknownEvent keeps the record pending and stores the raw payload on
// the record's metadata for later inspection.
func (s *SettlementService) stashUnknownEvent(ctx context.Context, event *gateway.WebhookEvent, body []byte) (*entity.Payment, error) {
	var settled *entity.Payment
	err := s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		current, err := s.paymentRepo.FindByOrderIDForUpdate(ctx, tx, event.OrderID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		settled = current
		if types.PaymentStatus(current.Status).Terminal() {
			return nil
		}

		if current.Metadata == nil {
			current.Metadata = map[string]string{}
		}
		current.Metadata[entity.MetaLastGatewayEvent] = string(body)
		current.UpdatedAt = time.Now().UTC()
		return s.paymentRepo.UpdateTx(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}

	metrics.WebhooksReceivedTotal.WithLabelValues("deferred").Inc()
	s.persistCallback(ctx, &settled.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, "")
	s.logger.WithFields(logrus.Fields{
		"order_id": event.OrderID,
		"status":   event.Status,
	}).Info("Gateway status not in transition table, payment left pending")
	return settled, nil
}

func (s *SettlementService) applyTransition(ctx context.Context, event *gateway.WebhookEvent, body []byte, next types.PaymentStatus) (*entity.Payment, error) {
	var settled *entity.Payment
	var oldStatus int32
	applied := false

	err := s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		// Reset per attempt: the runner may rerun the closure after a lock
		// conflict, and the winner may have settled the order meanwhile.
		applied = false

		current, err := s.paymentRepo.FindByOrderIDForUpdate(ctx, tx, event.OrderID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		settled = current

		if types.PaymentStatus(current.Status).Terminal() {
			return nil
		}

		now := time.Now().UTC()
		oldStatus = current.Status
		current.Status = int32(next)
		current.UpdatedAt = now
		if ref := event.UUID; ref != "" {
			current.ProviderReference = &ref
		}
		if current.Metadata == nil {
			current.Metadata = map[string]string{}
		}

		switch next {
		case types.PaymentStatusCompleted:
			current.CompletedAt = &now
			s.reconcileAmount(current, event)
			if err := s.applyCompletedSideEffect(ctx, tx, current, now); err != nil {
				return err
			}
		case types.PaymentStatusFailed:
			reason := "gateway reported " + event.Status
			current.Error = &reason
		case types.PaymentStatusCanceled, types.PaymentStatusRefunded:
			note := "gateway reported " + event.Status
			current.Error = &note
		}

		if err := s.paymentRepo.UpdateTx(ctx, tx, current); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		// Lost the race: the winner wrote a terminal state first.
		metrics.WebhooksReceivedTotal.WithLabelValues("replay").Inc()
		s.persistCallback(ctx, &settled.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, "")
		return settled, nil
	}

	now := time.Now().UTC()
	s.recordEvent(ctx, settled, oldStatus, event, body, "payment_"+types.PaymentStatus(settled.Status).String(), now)
	metrics.SettlementsTotal.WithLabelValues(types.PaymentType(settled.Type).String(), types.PaymentStatus(settled.Status).String()).Inc()

	if types.PaymentStatus(settled.Status) == types.PaymentStatusCompleted &&
		types.PaymentType(settled.Type) == types.PaymentTypeProxyPurchase {
		if err := s.provisionPurchase(ctx, settled, event, body, now); err != nil {
			return settled, err
		}
	}

	metrics.WebhooksReceivedTotal.WithLabelValues("processed").Inc()
	s.persistCallback(ctx, &settled.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, "")
	return settled, nil
}

// reconcileAmount compares the gateway-settled amount against the invoiced
// amount. The comparison only applies when the gateway reports in the invoice
// currency; crypto settlements report the coin amount otherwise. Overpayment
// is legal (paid_over), so a mismatch is annotated and logged, never blocked.
func (s *SettlementService) reconcileAmount(payment *entity.Payment, event *gateway.WebhookEvent) {
	if event.PaymentAmount == "" {
		return
	}
	if event.PaymentCurrency != "" && event.PaymentCurrency != payment.Currency {
		return
	}

	reported, err := decimal.NewFromString(event.PaymentAmount)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", payment.OrderID).Warn("Gateway payment_amount is not a number")
		return
	}

	invoiced := decimal.New(payment.AmountCents, -2)
	if reported.Equal(invoiced) {
		return
	}

	payment.Metadata[entity.MetaGatewayAmount] = event.PaymentAmount
	s.logger.WithFields(logrus.Fields{
		"order_id": payment.OrderID,
		"invoiced": invoiced.StringFixed(2),
		"settled":  reported.String(),
	}).Warn("Gateway-settled amount differs from invoiced amount")
}

// applyCompletedSideEffect writes the ledger entry for the capture and, for
// deposits, moves the wallet balance — all inside the settlement transaction.
func (s *SettlementService) applyCompletedSideEffect(ctx context.Context, tx repository.DBTX, payment *entity.Payment, now time.Time) error {
	switch types.PaymentType(payment.Type) {
	case types.PaymentTypeWalletDeposit:
		result, err := s.wallet.Credit(ctx, tx, payment.UserID, payment.AmountCents, payment.Currency, payment.OrderID)
		if err != nil {
			return err
		}
		payment.Metadata[entity.MetaBalanceBefore] = fmt.Sprintf("%d", result.BalanceBeforeCents)
		payment.Metadata[entity.MetaBalanceAfter] = fmt.Sprintf("%d", result.BalanceAfterCents)
		return nil
	case types.PaymentTypeProxyPurchase:
		return s.ledgerRepo.CreateTx(ctx, tx, &entity.LedgerTransaction{
			UserID:      payment.UserID,
			OrderID:     payment.OrderID,
			Type:        entity.LedgerTypePurchase,
			AmountCents: payment.AmountCents,
			Currency:    payment.Currency,
			CreatedAt:   now,
		})
	default:
		return fmt.Errorf("%w: payment %s has no type", ErrInvalidRequest, payment.OrderID)
	}
}

// provisionPurchase runs the external grant after the payment committed as
// completed. On failure the payment keeps its completed status, the failure
// is recorded on the record and the grant, and the error goes back to the
// webhook handler so the gateway learns the callback was not fully processed.
func (s *SettlementService) provisionPurchase(ctx context.Context, payment *entity.Payment, event *gateway.WebhookEvent, body []byte, now time.Time) error {
	_, err := s.provisioner.Grant(ctx, payment)
	if err == nil {
		return nil
	}

	reason := truncate(err.Error(), 1024)
	payment.Error = &reason
	payment.UpdatedAt = time.Now().UTC()
	if updateErr := s.paymentRepo.Update(ctx, payment); updateErr != nil {
		s.logger.WithError(updateErr).WithField("order_id", payment.OrderID).Error("Failed to record provisioning error on payment")
	}

	s.recordEvent(ctx, payment, payment.Status, event, body, "provisioning_failed", now)
	s.persistCallback(ctx, &payment.ID, event.OrderID, event.Signature, body, entity.WebhookCallbackProcessed, reason)
	return err
}

func (s *SettlementService) recordEvent(ctx context.Context, payment *entity.Payment, oldStatus int32, event *gateway.WebhookEvent, body []byte, eventType string, now time.Time) {
	var oldStatusPtr *int32
	if oldStatus != payment.Status {
		oldStatusPtr = &oldStatus
	}
	var txID *string
	if event.TxID != "" {
		id := event.TxID
		txID = &id
	}
	payload := string(body)

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID:   payment.ID,
		EventType:   eventType,
		OldStatus:   oldStatusPtr,
		NewStatus:   payment.Status,
		GatewayTxID: txID,
		PayloadJSON: &payload,
		CreatedAt:   now,
	})
}

func (s *SettlementService) persistCallback(ctx context.Context, paymentID *uint64, orderID, signature string, body []byte, status int32, reason string) {
	now := time.Now().UTC()
	var errPtr *string
	if reason != "" {
		trimmed := truncate(reason, 1024)
		errPtr = &trimmed
	}

	_ = s.callbackRepo.Create(ctx, &entity.WebhookCallback{
		PaymentID:   paymentID,
		Provider:    gateway.ProviderCryptomus,
		OrderID:     orderID,
		Signature:   signature,
		PayloadJSON: string(body),
		Status:      status,
		Error:       errPtr,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// claimedSignature pulls the sign field out of a payload that failed
// verification, so the rejected callback row still records what was claimed.
func claimedSignature(body []byte) string {
	var fields struct {
		Sign string `json:"sign"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	return fields.Sign
}
