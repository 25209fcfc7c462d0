package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func walletRows(id, userID uint64, balance int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "balance_cents", "currency", "created_at", "updated_at"}).
		AddRow(id, userID, balance, "USD", now, now)
}

func TestGetOrCreateForUpdateExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	mock.ExpectQuery("FROM wallets WHERE user_id = \\? FOR UPDATE$").
		WithArgs(uint64(42)).
		WillReturnRows(walletRows(3, 42, 1000))

	wallet, err := repo.GetOrCreateForUpdate(context.Background(), db, 42, "USD")
	require.NoError(t, err)
	require.Equal(t, uint64(3), wallet.ID)
	require.Equal(t, int64(1000), wallet.BalanceCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateForUpdateCreatesOnFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	mock.ExpectQuery("FROM wallets WHERE user_id = \\? FOR UPDATE$").
		WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(uint64(42), "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	wallet, err := repo.GetOrCreateForUpdate(context.Background(), db, 42, "USD")
	require.NoError(t, err)
	require.Equal(t, uint64(3), wallet.ID)
	require.Equal(t, int64(0), wallet.BalanceCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateForUpdateLosesInsertRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	mock.ExpectQuery("FROM wallets WHERE user_id = \\? FOR UPDATE$").
		WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO wallets").
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062})
	mock.ExpectQuery("FROM wallets WHERE user_id = \\? FOR UPDATE$").
		WithArgs(uint64(42)).
		WillReturnRows(walletRows(9, 42, 500))

	wallet, err := repo.GetOrCreateForUpdate(context.Background(), db, 42, "USD")
	require.NoError(t, err)
	require.Equal(t, uint64(9), wallet.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE wallets SET balance_cents = \\?, updated_at = \\? WHERE id = \\?").
		WithArgs(int64(1500), now, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateBalance(context.Background(), db, 3, 1500, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalanceMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	mock.ExpectExec("UPDATE wallets").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.Error(t, repo.UpdateBalance(context.Background(), db, 3, 1500, time.Now().UTC()))
}

func TestFindByUserIDMissingIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewWalletRepository(db)

	mock.ExpectQuery("FROM wallets WHERE user_id = \\?$").
		WithArgs(uint64(42)).
		WillReturnError(sql.ErrNoRows)

	wallet, err := repo.FindByUserID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, wallet)
}
