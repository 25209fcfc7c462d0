package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateTx appends a ledger entry inside the caller's transaction. Entries
// are immutable; there is intentionally no update method.
func (r *LedgerRepository) CreateTx(ctx context.Context, tx DBTX, item *entity.LedgerTransaction) error {
	query := `
		INSERT INTO wallet_transactions (
			user_id, order_id, type, amount_cents, currency, balance_after_cents, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		item.UserID,
		item.OrderID,
		item.Type,
		item.AmountCents,
		item.Currency,
		nullableInt64Value(item.BalanceAfterCents),
		item.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)
	return nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint64, limit, offset int32) ([]*entity.LedgerTransaction, error) {
	query := `
		SELECT id, user_id, order_id, type, amount_cents, currency, balance_after_cents, created_at
		FROM wallet_transactions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.LedgerTransaction, 0)
	for rows.Next() {
		item := &entity.LedgerTransaction{}
		var balanceAfter sql.NullInt64
		if err := rows.Scan(&item.ID, &item.UserID, &item.OrderID, &item.Type, &item.AmountCents, &item.Currency, &balanceAfter, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.BalanceAfterCents = int64PtrFromNull(balanceAfter)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
