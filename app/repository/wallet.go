package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetOrCreateForUpdate locks the user's wallet row for the duration of the
// surrounding transaction, creating it on first use.
func (r *WalletRepository) GetOrCreateForUpdate(ctx context.Context, tx DBTX, userID uint64, currency string) (*entity.Wallet, error) {
	wallet, err := selectWalletForUpdate(ctx, tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance_cents, currency, created_at, updated_at)
		 VALUES (?, 0, ?, ?, ?)`,
		userID, currency, now, now,
	)
	if err != nil {
		// Lost the insert race: another transaction created the row.
		if isDuplicateEntryError(err) {
			return selectWalletForUpdate(ctx, tx, userID)
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &entity.Wallet{
		ID:           uint64(id),
		UserID:       userID,
		BalanceCents: 0,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, tx DBTX, walletID uint64, balanceCents int64, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = ?, updated_at = ? WHERE id = ?`,
		balanceCents, now, walletID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("wallet row vanished during update")
	}
	return nil
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID uint64) (*entity.Wallet, error) {
	wallet := &entity.Wallet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = ?`,
		userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.BalanceCents, &wallet.Currency, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return wallet, nil
}

func selectWalletForUpdate(ctx context.Context, tx DBTX, userID uint64) (*entity.Wallet, error) {
	wallet := &entity.Wallet{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = ?
		 FOR UPDATE`,
		userID,
	).Scan(&wallet.ID, &wallet.UserID, &wallet.BalanceCents, &wallet.Currency, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}
