package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

// RollupService aggregates completed payments for reporting. It only ever
// reads; revenue numbers come straight from the settled records.
type RollupService struct {
	paymentRepo paymentRepository
	logger      logrus.FieldLogger
}

func NewRollupService(paymentRepo paymentRepository) *RollupService {
	return &RollupService{
		paymentRepo: paymentRepo,
		logger:      factory.NewModuleLogger("rollup-service"),
	}
}

// RevenueRollup sums completed payments per type and currency over [from, to).
func (s *RollupService) RevenueRollup(ctx context.Context, from, to time.Time) ([]*repository.RevenueRollupRow, error) {
	if !to.After(from) {
		return nil, ErrInvalidRequest
	}
	return s.paymentRepo.RevenueRollup(ctx, int32(types.PaymentStatusCompleted), from, to)
}

// LogRollup is the periodic job body: it aggregates the trailing window and
// emits one structured line per bucket.
func (s *RollupService) LogRollup(ctx context.Context, window time.Duration) error {
	to := time.Now().UTC()
	from := to.Add(-window)

	rows, err := s.RevenueRollup(ctx, from, to)
	if err != nil {
		return err
	}

	for _, row := range rows {
		s.logger.WithFields(logrus.Fields{
			"type":         types.PaymentType(row.Type).String(),
			"currency":     row.Currency,
			"payments":     row.Payments,
			"amount_cents": row.AmountCents,
			"from":         from.Format(time.RFC3339),
			"to":           to.Format(time.RFC3339),
		}).Info("Revenue rollup")
	}
	return nil
}
