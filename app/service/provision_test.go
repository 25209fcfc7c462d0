package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/proxy"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

func provisionPaymentForTest(metadata map[string]string) *entity.Payment {
	return &entity.Payment{
		ID:       7,
		OrderID:  "PX-1",
		UserID:   42,
		Status:   int32(types.PaymentStatusCompleted),
		Type:     int32(types.PaymentTypeProxyPurchase),
		Metadata: metadata,
	}
}

func TestGrantOneTimePlanExpires(t *testing.T) {
	grantRepo := newServiceGrantRepo()
	proxyClient := &serviceProxyClient{}
	svc := NewProvisionService(grantRepo, proxyClient, 30)

	grant, err := svc.Grant(context.Background(), provisionPaymentForTest(purchaseMetadata("5 GB")))
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if grant.BandwidthMB != 5120 {
		t.Fatalf("unexpected bandwidth %d", grant.BandwidthMB)
	}
	if grant.ExpiresAt == nil {
		t.Fatal("one_time plan must carry an expiry")
	}
	if grant.BalanceSnapshot == nil {
		t.Fatal("expected balance snapshot after a successful upstream call")
	}
	if grant.ExpiresAt.Sub(grant.PurchasedAt).Hours() != 30*24 {
		t.Fatalf("unexpected plan duration %v", grant.ExpiresAt.Sub(grant.PurchasedAt))
	}
}

func TestGrantRecurringPlanHasNoExpiry(t *testing.T) {
	grantRepo := newServiceGrantRepo()
	svc := NewProvisionService(grantRepo, &serviceProxyClient{}, 30)

	metadata := purchaseMetadata("512 MB")
	metadata[entity.MetaRecurrence] = entity.RecurrenceRecurring

	grant, err := svc.Grant(context.Background(), provisionPaymentForTest(metadata))
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if grant.ExpiresAt != nil {
		t.Fatal("recurring plan must not expire")
	}
	if grant.BandwidthMB != 512 {
		t.Fatalf("unexpected bandwidth %d", grant.BandwidthMB)
	}
}

func TestGrantRequiresMetadata(t *testing.T) {
	svc := NewProvisionService(newServiceGrantRepo(), &serviceProxyClient{}, 30)

	metadata := purchaseMetadata("5 GB")
	delete(metadata, entity.MetaProxyUsername)

	_, err := svc.Grant(context.Background(), provisionPaymentForTest(metadata))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGrantRecordsUpstreamFailure(t *testing.T) {
	grantRepo := newServiceGrantRepo()
	proxyClient := &serviceProxyClient{
		addBalanceFn: func(context.Context, string, string, int64) (*proxy.Balance, error) {
			return nil, errors.New("upstream 502")
		},
	}
	svc := NewProvisionService(grantRepo, proxyClient, 30)

	grant, err := svc.Grant(context.Background(), provisionPaymentForTest(purchaseMetadata("5 GB")))
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("expected ErrProvisioningFailed, got %v", err)
	}

	if grant == nil || !grant.IsActive {
		t.Fatalf("expected active grant despite failure, got %+v", grant)
	}
	if grant.ProvisioningError == nil {
		t.Fatal("expected provisioning_error on grant")
	}

	stored, _ := grantRepo.FindByOrderID(context.Background(), "PX-1")
	if stored == nil || stored.ProvisioningError == nil {
		t.Fatalf("failure must be persisted, got %+v", stored)
	}
}
