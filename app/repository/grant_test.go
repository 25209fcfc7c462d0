package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

func TestGrantUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewGrantRepository(db)

	now := time.Now().UTC()
	expires := now.Add(30 * 24 * time.Hour)
	mock.ExpectExec("INSERT INTO provisioning_grants(.|\\s)+ON DUPLICATE KEY UPDATE").
		WithArgs(uint64(42), "PX-1", "residential", "pro", int64(5120), true,
			now, expires, nil, nil, now, now).
		WillReturnResult(sqlmock.NewResult(4, 1))

	grant := &entity.ProvisioningGrant{
		UserID:      42,
		OrderID:     "PX-1",
		PlanType:    "residential",
		Tier:        "pro",
		BandwidthMB: 5120,
		IsActive:    true,
		PurchasedAt: now,
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Upsert(context.Background(), grant))
	require.Equal(t, uint64(4), grant.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantUpsertWithFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewGrantRepository(db)

	now := time.Now().UTC()
	reason := "upstream 502"
	mock.ExpectExec("INSERT INTO provisioning_grants").
		WithArgs(uint64(42), "PX-1", "residential", "pro", int64(0), true,
			now, nil, reason, nil, now, now).
		WillReturnResult(sqlmock.NewResult(4, 1))

	grant := &entity.ProvisioningGrant{
		UserID:            42,
		OrderID:           "PX-1",
		PlanType:          "residential",
		Tier:              "pro",
		IsActive:          true,
		PurchasedAt:       now,
		ProvisioningError: &reason,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, repo.Upsert(context.Background(), grant))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantFindByOrderID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewGrantRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM provisioning_grants WHERE order_id = \\?").
		WithArgs("PX-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "order_id", "plan_type", "tier", "bandwidth_mb", "is_active",
			"purchased_at", "expires_at", "provisioning_error", "balance_snapshot",
			"created_at", "updated_at",
		}).AddRow(4, 42, "PX-1", "residential", "pro", 5120, true, now, nil, nil, `{"residential":5120}`, now, now))

	grant, err := repo.FindByOrderID(context.Background(), "PX-1")
	require.NoError(t, err)
	require.NotNil(t, grant)
	require.True(t, grant.IsActive)
	require.Nil(t, grant.ExpiresAt)
	require.NotNil(t, grant.BalanceSnapshot)
}

func TestGrantFindByOrderIDMissingIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewGrantRepository(db)

	mock.ExpectQuery("FROM provisioning_grants").
		WithArgs("PX-missing").
		WillReturnError(sql.ErrNoRows)

	grant, err := repo.FindByOrderID(context.Background(), "PX-missing")
	require.NoError(t, err)
	require.Nil(t, grant)
}
