package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/gateway"
	"github.com/vibast-solutions/ms-go-proxypay/app/proxy"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
)

type servicePaymentRepo struct {
	payments  map[uint64]*entity.Payment
	nextID    uint64
	ambiguous map[string]bool

	createErr       error
	updateErr       error
	findFn          func(orderID string) (*entity.Payment, error)
	findForUpdateFn func(orderID string) (*entity.Payment, error)
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{
		payments:  map[uint64]*entity.Payment{},
		nextID:    1,
		ambiguous: map[string]bool{},
	}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, item := range r.payments {
		if item.OrderID == payment.OrderID {
			return repository.ErrOrderIDExists
		}
	}
	id := r.nextID
	r.nextID++
	copyItem := *payment
	copyItem.ID = id
	r.payments[id] = &copyItem
	payment.ID = id
	return nil
}

func (r *servicePaymentRepo) Update(_ context.Context, payment *entity.Payment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.payments[payment.ID]; !ok {
		return repository.ErrPaymentNotFound
	}
	copyItem := *payment
	r.payments[payment.ID] = &copyItem
	return nil
}

func (r *servicePaymentRepo) UpdateTx(ctx context.Context, _ repository.DBTX, payment *entity.Payment) error {
	return r.Update(ctx, payment)
}

func (r *servicePaymentRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	if r.findFn != nil {
		return r.findFn(orderID)
	}
	return r.lookup(orderID)
}

func (r *servicePaymentRepo) FindByOrderIDForUpdate(_ context.Context, _ repository.DBTX, orderID string) (*entity.Payment, error) {
	if r.findForUpdateFn != nil {
		return r.findForUpdateFn(orderID)
	}
	return r.lookup(orderID)
}

func (r *servicePaymentRepo) lookup(orderID string) (*entity.Payment, error) {
	if r.ambiguous[orderID] {
		return nil, repository.ErrOrderIDAmbiguous
	}
	for _, item := range r.payments {
		if item.OrderID == orderID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	result := []*entity.Payment{}
	for _, item := range r.payments {
		if filter.UserID != 0 && item.UserID != filter.UserID {
			continue
		}
		if filter.HasStatus && item.Status != filter.Status {
			continue
		}
		if filter.HasType && item.Type != filter.Type {
			continue
		}
		copyItem := *item
		result = append(result, &copyItem)
	}
	return result, nil
}

func (r *servicePaymentRepo) RevenueRollup(_ context.Context, completedStatus int32, from, to time.Time) ([]*repository.RevenueRollupRow, error) {
	buckets := map[string]*repository.RevenueRollupRow{}
	for _, item := range r.payments {
		if item.Status != completedStatus || item.CompletedAt == nil {
			continue
		}
		if item.CompletedAt.Before(from) || !item.CompletedAt.Before(to) {
			continue
		}
		key := string(rune(item.Type)) + item.Currency
		bucket, ok := buckets[key]
		if !ok {
			bucket = &repository.RevenueRollupRow{Type: item.Type, Currency: item.Currency}
			buckets[key] = bucket
		}
		bucket.Payments++
		bucket.AmountCents += item.AmountCents
	}
	result := []*repository.RevenueRollupRow{}
	for _, bucket := range buckets {
		result = append(result, bucket)
	}
	return result, nil
}

type serviceWalletRepo struct {
	wallets map[uint64]*entity.Wallet
	nextID  uint64
}

func newServiceWalletRepo() *serviceWalletRepo {
	return &serviceWalletRepo{wallets: map[uint64]*entity.Wallet{}, nextID: 1}
}

func (r *serviceWalletRepo) GetOrCreateForUpdate(_ context.Context, _ repository.DBTX, userID uint64, currency string) (*entity.Wallet, error) {
	for _, item := range r.wallets {
		if item.UserID == userID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	id := r.nextID
	r.nextID++
	wallet := &entity.Wallet{ID: id, UserID: userID, Currency: currency}
	r.wallets[id] = wallet
	copyItem := *wallet
	return &copyItem, nil
}

func (r *serviceWalletRepo) UpdateBalance(_ context.Context, _ repository.DBTX, walletID uint64, balanceCents int64, now time.Time) error {
	wallet, ok := r.wallets[walletID]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	wallet.BalanceCents = balanceCents
	wallet.UpdatedAt = now
	return nil
}

func (r *serviceWalletRepo) FindByUserID(_ context.Context, userID uint64) (*entity.Wallet, error) {
	for _, item := range r.wallets {
		if item.UserID == userID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

type serviceLedgerRepo struct {
	items []*entity.LedgerTransaction
}

func (r *serviceLedgerRepo) CreateTx(_ context.Context, _ repository.DBTX, item *entity.LedgerTransaction) error {
	copyItem := *item
	r.items = append(r.items, &copyItem)
	return nil
}

func (r *serviceLedgerRepo) ListByUser(_ context.Context, userID uint64, _, _ int32) ([]*entity.LedgerTransaction, error) {
	result := []*entity.LedgerTransaction{}
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		copyItem := *item
		result = append(result, &copyItem)
	}
	return result, nil
}

type serviceGrantRepo struct {
	grants    map[string]*entity.ProvisioningGrant
	upsertErr error
}

func newServiceGrantRepo() *serviceGrantRepo {
	return &serviceGrantRepo{grants: map[string]*entity.ProvisioningGrant{}}
}

func (r *serviceGrantRepo) Upsert(_ context.Context, grant *entity.ProvisioningGrant) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	copyItem := *grant
	r.grants[grant.OrderID] = &copyItem
	return nil
}

func (r *serviceGrantRepo) FindByOrderID(_ context.Context, orderID string) (*entity.ProvisioningGrant, error) {
	item, ok := r.grants[orderID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type serviceEventRepo struct {
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

type serviceCallbackRepo struct {
	callbacks []*entity.WebhookCallback
}

func (r *serviceCallbackRepo) Create(_ context.Context, callback *entity.WebhookCallback) error {
	copyItem := *callback
	r.callbacks = append(r.callbacks, &copyItem)
	return nil
}

type serviceTxRunner struct {
	calls int
}

func (r *serviceTxRunner) WithinTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	r.calls++
	return fn(nil)
}

type serviceVerifier struct {
	event *gateway.WebhookEvent
	err   error
}

func (v *serviceVerifier) VerifyWebhook(body []byte, _ string) (*gateway.WebhookEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	event := *v.event
	event.Raw = body
	return &event, nil
}

type serviceGateway struct {
	createFn func(ctx context.Context, input *gateway.InvoiceInput) (*gateway.InvoiceOutput, error)
	inputs   []*gateway.InvoiceInput
}

func (g *serviceGateway) CreateInvoice(ctx context.Context, input *gateway.InvoiceInput) (*gateway.InvoiceOutput, error) {
	copyInput := *input
	g.inputs = append(g.inputs, &copyInput)
	if g.createFn != nil {
		return g.createFn(ctx, input)
	}
	return &gateway.InvoiceOutput{
		ProviderReference: "inv-" + input.OrderID,
		CheckoutURL:       "https://pay.example.com/checkout/" + input.OrderID,
	}, nil
}

type serviceProxyClient struct {
	addBalanceFn func(ctx context.Context, username, product string, megabytes int64) (*proxy.Balance, error)
	grants       []int64
}

func (c *serviceProxyClient) AddBalance(ctx context.Context, username, product string, megabytes int64) (*proxy.Balance, error) {
	c.grants = append(c.grants, megabytes)
	if c.addBalanceFn != nil {
		return c.addBalanceFn(ctx, username, product, megabytes)
	}
	return &proxy.Balance{Residential: megabytes}, nil
}

func purchaseMetadata(bandwidth string) map[string]string {
	return map[string]string{
		entity.MetaPlanType:      proxy.ProductResidential,
		entity.MetaTier:          "pro",
		entity.MetaBandwidth:     strings.TrimSpace(bandwidth),
		entity.MetaRecurrence:    entity.RecurrenceOneTime,
		entity.MetaProxyUsername: "sub_42",
	}
}
