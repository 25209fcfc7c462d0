package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
)

type WebhookCallbackRepository struct {
	db DBTX
}

func NewWebhookCallbackRepository(db DBTX) *WebhookCallbackRepository {
	return &WebhookCallbackRepository{db: db}
}

func (r *WebhookCallbackRepository) Create(ctx context.Context, callback *entity.WebhookCallback) error {
	query := `
		INSERT INTO webhook_callbacks (
			payment_id, provider, order_id, signature, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var paymentID interface{}
	if callback.PaymentID != nil {
		paymentID = *callback.PaymentID
	}

	result, err := r.db.ExecContext(ctx, query,
		paymentID,
		callback.Provider,
		callback.OrderID,
		callback.Signature,
		callback.PayloadJSON,
		callback.Status,
		nullableStringValue(callback.Error),
		callback.CreatedAt,
		callback.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)

	return nil
}
