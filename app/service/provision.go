package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
	"github.com/vibast-solutions/ms-go-proxypay/app/metrics"
	"github.com/vibast-solutions/ms-go-proxypay/app/proxy"
)

type grantRepository interface {
	Upsert(ctx context.Context, grant *entity.ProvisioningGrant) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.ProvisioningGrant, error)
}

type proxyAccountClient interface {
	AddBalance(ctx context.Context, username, product string, megabytes int64) (*proxy.Balance, error)
}

// ProvisionService grants bandwidth on the upstream proxy account after a
// purchase settles. A failed upstream call still leaves a grant row behind,
// with provisioning_error set, so support can reconcile what the user paid
// for; the error is returned to the settlement for the gateway to see.
type ProvisionService struct {
	grantRepo    grantRepository
	proxyClient  proxyAccountClient
	planDuration time.Duration
	logger       logrus.FieldLogger
}

func NewProvisionService(grantRepo grantRepository, proxyClient proxyAccountClient, planDurationDays int) *ProvisionService {
	if planDurationDays <= 0 {
		planDurationDays = 30
	}
	return &ProvisionService{
		grantRepo:    grantRepo,
		proxyClient:  proxyClient,
		planDuration: time.Duration(planDurationDays) * 24 * time.Hour,
		logger:       factory.NewModuleLogger("provision-service"),
	}
}

// Grant provisions the plan described by the payment's metadata. Required
// keys: plan_type, tier, bandwidth, proxy_username; recurrence defaults to
// one_time. A malformed bandwidth string is a hard input error and no
// upstream call is made.
func (s *ProvisionService) Grant(ctx context.Context, payment *entity.Payment) (*entity.ProvisioningGrant, error) {
	planType, err := requiredMeta(payment, entity.MetaPlanType)
	if err != nil {
		return nil, err
	}
	tier, err := requiredMeta(payment, entity.MetaTier)
	if err != nil {
		return nil, err
	}
	bandwidthRaw, err := requiredMeta(payment, entity.MetaBandwidth)
	if err != nil {
		return nil, err
	}
	username, err := requiredMeta(payment, entity.MetaProxyUsername)
	if err != nil {
		return nil, err
	}
	recurrence := payment.Metadata[entity.MetaRecurrence]
	if recurrence == "" {
		recurrence = entity.RecurrenceOneTime
	}

	now := time.Now().UTC()
	grant := &entity.ProvisioningGrant{
		UserID:      payment.UserID,
		OrderID:     payment.OrderID,
		PlanType:    planType,
		Tier:        tier,
		IsActive:    true,
		PurchasedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if recurrence == entity.RecurrenceOneTime {
		expires := now.Add(s.planDuration)
		grant.ExpiresAt = &expires
	}

	megabytes, err := proxy.ParseBandwidth(bandwidthRaw)
	if err != nil {
		return s.recordFailure(ctx, grant, payment, err)
	}
	grant.BandwidthMB = megabytes

	if err := proxy.ValidateProduct(planType); err != nil {
		return s.recordFailure(ctx, grant, payment, err)
	}

	balance, err := s.proxyClient.AddBalance(ctx, username, planType, megabytes)
	if err != nil {
		return s.recordFailure(ctx, grant, payment, err)
	}

	if snapshot, err := json.Marshal(balance); err == nil {
		encoded := string(snapshot)
		grant.BalanceSnapshot = &encoded
	}

	if err := s.grantRepo.Upsert(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// recordFailure writes the grant with the failure attached, then propagates
// the cause. The payment stays completed: money was captured.
func (s *ProvisionService) recordFailure(ctx context.Context, grant *entity.ProvisioningGrant, payment *entity.Payment, cause error) (*entity.ProvisioningGrant, error) {
	metrics.ProvisioningFailuresTotal.Inc()

	reason := truncate(cause.Error(), 1024)
	grant.ProvisioningError = &reason

	if err := s.grantRepo.Upsert(ctx, grant); err != nil {
		s.logger.WithError(err).WithField("order_id", payment.OrderID).Error("Failed to persist provisioning failure")
	}

	s.logger.WithError(cause).WithFields(logrus.Fields{
		"order_id": payment.OrderID,
		"user_id":  payment.UserID,
	}).Error("Proxy provisioning failed")

	return grant, fmt.Errorf("%w: %v", ErrProvisioningFailed, cause)
}

func requiredMeta(payment *entity.Payment, key string) (string, error) {
	value := strings.TrimSpace(payment.Metadata[key])
	if value == "" {
		return "", fmt.Errorf("%w: metadata key %q is required for provisioning", ErrInvalidRequest, key)
	}
	return value, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
