package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
	"github.com/vibast-solutions/ms-go-proxypay/app/gateway"
	"github.com/vibast-solutions/ms-go-proxypay/app/proxy"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	UpdateTx(ctx context.Context, tx repository.DBTX, payment *entity.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindByOrderIDForUpdate(ctx context.Context, tx repository.DBTX, orderID string) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
	RevenueRollup(ctx context.Context, completedStatus int32, from, to time.Time) ([]*repository.RevenueRollupRow, error)
}

type invoiceCreator interface {
	CreateInvoice(ctx context.Context, input *gateway.InvoiceInput) (*gateway.InvoiceOutput, error)
}

// PaymentURLs are the redirect and callback targets handed to the gateway
// when an invoice is created.
type PaymentURLs struct {
	SuccessURL string
	ReturnURL  string
	WebhookURL string
}

type ProxyPurchaseInput struct {
	UserID      uint64
	AmountCents int64
	Currency    string

	PlanType      string
	Tier          string
	Bandwidth     string
	Recurrence    string
	ProxyUsername string

	Network    string
	BuyerEmail string
}

type WalletDepositInput struct {
	UserID      uint64
	AmountCents int64
	Currency    string

	Network    string
	BuyerEmail string
}

// PaymentService creates payment records and registers them with the gateway.
// Records are born pending; only the settlement moves them afterwards, except
// for the explicit user-facing cancel of a still-pending order.
type PaymentService struct {
	paymentRepo paymentRepository
	gateway     invoiceCreator
	urls        PaymentURLs
	tx          txRunner
	logger      logrus.FieldLogger
}

func NewPaymentService(paymentRepo paymentRepository, gw invoiceCreator, urls PaymentURLs, tx txRunner) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		gateway:     gw,
		urls:        urls,
		tx:          tx,
		logger:      factory.NewModuleLogger("payment-service"),
	}
}

// CreateProxyPurchase validates the plan up front so that a malformed order
// never reaches the gateway, persists the pending record, then creates the
// gateway invoice. The checkout URL is stored before it is handed back, so a
// crash after invoice creation still leaves a payable record behind.
func (s *PaymentService) CreateProxyPurchase(ctx context.Context, input *ProxyPurchaseInput) (*entity.Payment, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(input.ProxyUsername) == "" {
		return nil, fmt.Errorf("%w: proxy_username is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(input.Tier) == "" {
		return nil, fmt.Errorf("%w: tier is required", ErrInvalidRequest)
	}
	if err := proxy.ValidateProduct(input.PlanType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := proxy.ParseBandwidth(input.Bandwidth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	recurrence := input.Recurrence
	if recurrence == "" {
		recurrence = entity.RecurrenceOneTime
	}
	if recurrence != entity.RecurrenceOneTime && recurrence != entity.RecurrenceRecurring {
		return nil, fmt.Errorf("%w: recurrence must be %s or %s", ErrInvalidRequest, entity.RecurrenceOneTime, entity.RecurrenceRecurring)
	}

	metadata := map[string]string{
		entity.MetaPlanType:      input.PlanType,
		entity.MetaTier:          input.Tier,
		entity.MetaBandwidth:     strings.TrimSpace(input.Bandwidth),
		entity.MetaRecurrence:    recurrence,
		entity.MetaProxyUsername: strings.TrimSpace(input.ProxyUsername),
	}
	if network := strings.TrimSpace(input.Network); network != "" {
		metadata[entity.MetaNetwork] = network
	}

	return s.create(ctx, types.PaymentTypeProxyPurchase, input.UserID, input.AmountCents, input.Currency, metadata, &gateway.InvoiceInput{
		Description: fmt.Sprintf("%s proxy plan %s (%s)", input.PlanType, input.Tier, strings.TrimSpace(input.Bandwidth)),
		BuyerEmail:  input.BuyerEmail,
		Network:     input.Network,
	})
}

// CreateWalletDeposit registers a top-up order. The wallet itself is only
// touched when the gateway confirms the capture.
func (s *PaymentService) CreateWalletDeposit(ctx context.Context, input *WalletDepositInput) (*entity.Payment, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.create(ctx, types.PaymentTypeWalletDeposit, input.UserID, input.AmountCents, input.Currency, map[string]string{}, &gateway.InvoiceInput{
		Description: "wallet deposit",
		BuyerEmail:  input.BuyerEmail,
		Network:     input.Network,
	})
}

func (s *PaymentService) create(ctx context.Context, paymentType types.PaymentType, userID uint64, amountCents int64, currency string, metadata map[string]string, invoice *gateway.InvoiceInput) (*entity.Payment, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		OrderID:     NewOrderID(),
		UserID:      userID,
		Status:      int32(types.PaymentStatusPending),
		Type:        int32(paymentType),
		Provider:    gateway.ProviderCryptomus,
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrOrderIDExists) {
			// Generated ids collide only if the generator is broken.
			s.logger.WithField("order_id", payment.OrderID).Error("Generated order id already exists")
		}
		return nil, err
	}

	invoice.OrderID = payment.OrderID
	invoice.AmountCents = amountCents
	invoice.Currency = currency
	invoice.SuccessURL = s.urls.SuccessURL
	invoice.ReturnURL = s.urls.ReturnURL
	invoice.WebhookURL = s.urls.WebhookURL

	output, err := s.gateway.CreateInvoice(ctx, invoice)
	if err != nil {
		reason := truncate(err.Error(), 1024)
		payment.Status = int32(types.PaymentStatusFailed)
		payment.Error = &reason
		payment.UpdatedAt = time.Now().UTC()
		if updateErr := s.paymentRepo.Update(ctx, payment); updateErr != nil {
			s.logger.WithError(updateErr).WithField("order_id", payment.OrderID).Error("Failed to mark payment failed after gateway error")
		}
		return nil, err
	}

	payment.ProviderReference = &output.ProviderReference
	payment.CheckoutURL = &output.CheckoutURL
	payment.UpdatedAt = time.Now().UTC()
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderIDAmbiguous) {
			return nil, fmt.Errorf("%w: %s", ErrOrderAmbiguous, orderID)
		}
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}

// CancelPayment voids a pending order at the user's request. Anything past
// pending is outside the caller's reach: the gateway decides those.
func (s *PaymentService) CancelPayment(ctx context.Context, orderID string) (*entity.Payment, error) {
	var canceled *entity.Payment
	err := s.tx.WithinTx(ctx, func(tx repository.DBTX) error {
		current, err := s.paymentRepo.FindByOrderIDForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderIDAmbiguous) {
				return fmt.Errorf("%w: %s", ErrOrderAmbiguous, orderID)
			}
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		if types.PaymentStatus(current.Status) != types.PaymentStatusPending {
			return fmt.Errorf("%w: payment is %s", ErrInvalidStatus, types.PaymentStatus(current.Status))
		}

		now := time.Now().UTC()
		reason := "canceled by user"
		current.Status = int32(types.PaymentStatusCanceled)
		current.Error = &reason
		current.UpdatedAt = now
		canceled = current
		return s.paymentRepo.UpdateTx(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}
