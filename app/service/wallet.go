package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/metrics"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
)

type walletRepository interface {
	GetOrCreateForUpdate(ctx context.Context, tx repository.DBTX, userID uint64, currency string) (*entity.Wallet, error)
	UpdateBalance(ctx context.Context, tx repository.DBTX, walletID uint64, balanceCents int64, now time.Time) error
	FindByUserID(ctx context.Context, userID uint64) (*entity.Wallet, error)
}

type ledgerRepository interface {
	CreateTx(ctx context.Context, tx repository.DBTX, item *entity.LedgerTransaction) error
	ListByUser(ctx context.Context, userID uint64, limit, offset int32) ([]*entity.LedgerTransaction, error)
}

type CreditResult struct {
	BalanceBeforeCents int64
	BalanceAfterCents  int64
	Transaction        *entity.LedgerTransaction
}

// WalletService owns the spendable balance and its append-only ledger. The
// balance update and the ledger entry always share the caller's transaction,
// so they are applied together or not at all.
type WalletService struct {
	walletRepo walletRepository
	ledgerRepo ledgerRepository
}

func NewWalletService(walletRepo walletRepository, ledgerRepo ledgerRepository) *WalletService {
	return &WalletService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
	}
}

// Credit increments the user's balance by a strictly positive amount inside
// the given transaction. A conflicting concurrent transaction surfaces as a
// lock error and is retried by the caller's transaction runner, which reruns
// the whole read-modify-write.
func (s *WalletService) Credit(ctx context.Context, tx repository.DBTX, userID uint64, amountCents int64, currency, orderID string) (*CreditResult, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, userID, currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	before := wallet.BalanceCents
	after := before + amountCents

	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, after, now); err != nil {
		return nil, err
	}

	ledgerTx := &entity.LedgerTransaction{
		UserID:            userID,
		OrderID:           orderID,
		Type:              entity.LedgerTypeDeposit,
		AmountCents:       amountCents,
		Currency:          currency,
		BalanceAfterCents: &after,
		CreatedAt:         now,
	}
	if err := s.ledgerRepo.CreateTx(ctx, tx, ledgerTx); err != nil {
		return nil, err
	}

	metrics.WalletCreditsTotal.Inc()

	return &CreditResult{
		BalanceBeforeCents: before,
		BalanceAfterCents:  after,
		Transaction:        ledgerTx,
	}, nil
}

// Statement returns the user's wallet and its most recent ledger entries.
// The wallet is nil when the user never had a settled deposit.
func (s *WalletService) Statement(ctx context.Context, userID uint64, limit, offset int32) (*entity.Wallet, []*entity.LedgerTransaction, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if wallet == nil {
		return nil, nil, nil
	}

	items, err := s.ledgerRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return wallet, items, nil
}
