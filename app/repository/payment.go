package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOrderIDExists   = errors.New("order id already exists")
	// ErrOrderIDAmbiguous means more than one payment row carries the same
	// order id. That is a data-integrity fault, never resolved to a pick.
	ErrOrderIDAmbiguous = errors.New("order id matches multiple payments")
)

const paymentColumns = `id, order_id, user_id, status, type, provider,
		amount_cents, currency, provider_reference, checkout_url, error,
		metadata_json, created_at, updated_at, completed_at`

type PaymentFilter struct {
	UserID    uint64
	HasStatus bool
	Status    int32
	HasType   bool
	Type      int32
	Limit     int32
	Offset    int32
}

type RevenueRollupRow struct {
	Type        int32
	Currency    string
	Payments    int64
	AmountCents int64
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			order_id, user_id, status, type, provider,
			amount_cents, currency, provider_reference, checkout_url, error,
			metadata_json, created_at, updated_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.UserID,
		payment.Status,
		payment.Type,
		payment.Provider,
		payment.AmountCents,
		payment.Currency,
		nullableStringValue(payment.ProviderReference),
		nullableStringValue(payment.CheckoutURL),
		nullableStringValue(payment.Error),
		metadataJSON,
		payment.CreatedAt,
		payment.UpdatedAt,
		nullableTimeValue(payment.CompletedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderIDExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

// FindByOrderID resolves a payment by its order identifier. The table holds a
// unique key on order_id, but the lookup still reads two rows so stores that
// acquired duplicates before the constraint existed fail loudly instead of
// settling against an arbitrary match.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	return findByOrderID(ctx, r.db, orderID, false)
}

// FindByOrderIDForUpdate is FindByOrderID with a row lock, for use inside a
// settlement transaction.
func (r *PaymentRepository) FindByOrderIDForUpdate(ctx context.Context, tx DBTX, orderID string) (*entity.Payment, error) {
	return findByOrderID(ctx, tx, orderID, true)
}

func findByOrderID(ctx context.Context, db DBTX, orderID string, forUpdate bool) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = ?
		LIMIT 2`
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0, 1)
	for rows.Next() {
		item, err := scanPaymentFromRows(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(payments) {
	case 0:
		return nil, nil
	case 1:
		return payments[0], nil
	default:
		return nil, ErrOrderIDAmbiguous
	}
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	return updatePayment(ctx, r.db, payment)
}

func (r *PaymentRepository) UpdateTx(ctx context.Context, tx DBTX, payment *entity.Payment) error {
	return updatePayment(ctx, tx, payment)
}

func updatePayment(ctx context.Context, db DBTX, payment *entity.Payment) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments SET
			status = ?,
			provider_reference = ?,
			checkout_url = ?,
			error = ?,
			metadata_json = ?,
			updated_at = ?,
			completed_at = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query,
		payment.Status,
		nullableStringValue(payment.ProviderReference),
		nullableStringValue(payment.CheckoutURL),
		nullableStringValue(payment.Error),
		metadataJSON,
		payment.UpdatedAt,
		nullableTimeValue(payment.CompletedAt),
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.HasType {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item, err := scanPaymentFromRows(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// RevenueRollup aggregates completed payments by type and currency. Read-only;
// it never touches payment state.
func (r *PaymentRepository) RevenueRollup(ctx context.Context, completedStatus int32, from, to time.Time) ([]*RevenueRollupRow, error) {
	query := `
		SELECT type, currency, COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE status = ?
		  AND completed_at >= ?
		  AND completed_at < ?
		GROUP BY type, currency
		ORDER BY type, currency
	`

	rows, err := r.db.QueryContext(ctx, query, completedStatus, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*RevenueRollupRow, 0)
	for rows.Next() {
		row := &RevenueRollupRow{}
		if err := rows.Scan(&row.Type, &row.Currency, &row.Payments, &row.AmountCents); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var providerReference sql.NullString
	var checkoutURL sql.NullString
	var lastError sql.NullString
	var metadataJSON string
	var completedAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.UserID,
		&payment.Status,
		&payment.Type,
		&payment.Provider,
		&payment.AmountCents,
		&payment.Currency,
		&providerReference,
		&checkoutURL,
		&lastError,
		&metadataJSON,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return err
	}

	payment.ProviderReference = stringPtrFromNull(providerReference)
	payment.CheckoutURL = stringPtrFromNull(checkoutURL)
	payment.Error = stringPtrFromNull(lastError)
	payment.CompletedAt = timePtrFromNull(completedAt)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	payment.Metadata = metadata

	return nil
}

func scanPaymentFromRows(rows *sql.Rows) (*entity.Payment, error) {
	item := &entity.Payment{}
	if err := scanPayment(rows, item); err != nil {
		return nil, err
	}
	return item, nil
}
