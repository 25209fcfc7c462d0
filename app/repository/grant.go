package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

type GrantRepository struct {
	db DBTX
}

func NewGrantRepository(db DBTX) *GrantRepository {
	return &GrantRepository{db: db}
}

// Upsert writes the grant for an order, overwriting a previous attempt for
// the same order id. A failed provisioning call still produces a row, with
// provisioning_error populated.
func (r *GrantRepository) Upsert(ctx context.Context, grant *entity.ProvisioningGrant) error {
	query := `
		INSERT INTO provisioning_grants (
			user_id, order_id, plan_type, tier, bandwidth_mb, is_active,
			purchased_at, expires_at, provisioning_error, balance_snapshot,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			plan_type = VALUES(plan_type),
			tier = VALUES(tier),
			bandwidth_mb = VALUES(bandwidth_mb),
			is_active = VALUES(is_active),
			purchased_at = VALUES(purchased_at),
			expires_at = VALUES(expires_at),
			provisioning_error = VALUES(provisioning_error),
			balance_snapshot = VALUES(balance_snapshot),
			updated_at = VALUES(updated_at)
	`

	result, err := r.db.ExecContext(ctx, query,
		grant.UserID,
		grant.OrderID,
		grant.PlanType,
		grant.Tier,
		grant.BandwidthMB,
		grant.IsActive,
		grant.PurchasedAt,
		nullableTimeValue(grant.ExpiresAt),
		nullableStringValue(grant.ProvisioningError),
		nullableStringValue(grant.BalanceSnapshot),
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		grant.ID = uint64(id)
	}
	return nil
}

func (r *GrantRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.ProvisioningGrant, error) {
	query := `
		SELECT id, user_id, order_id, plan_type, tier, bandwidth_mb, is_active,
			purchased_at, expires_at, provisioning_error, balance_snapshot,
			created_at, updated_at
		FROM provisioning_grants
		WHERE order_id = ?
	`

	grant := &entity.ProvisioningGrant{}
	var expiresAt sql.NullTime
	var provisioningError sql.NullString
	var balanceSnapshot sql.NullString

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.OrderID,
		&grant.PlanType,
		&grant.Tier,
		&grant.BandwidthMB,
		&grant.IsActive,
		&grant.PurchasedAt,
		&expiresAt,
		&provisioningError,
		&balanceSnapshot,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	grant.ExpiresAt = timePtrFromNull(expiresAt)
	grant.ProvisioningError = stringPtrFromNull(provisioningError)
	grant.BalanceSnapshot = stringPtrFromNull(balanceSnapshot)
	return grant, nil
}
