package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-proxypay/app/entity"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	resp := &types.Payment{
		ID:                item.ID,
		OrderID:           item.OrderID,
		UserID:            item.UserID,
		Status:            types.PaymentStatus(item.Status),
		StatusName:        types.PaymentStatus(item.Status).String(),
		Type:              types.PaymentType(item.Type),
		TypeName:          types.PaymentType(item.Type).String(),
		Provider:          item.Provider,
		AmountCents:       item.AmountCents,
		Currency:          item.Currency,
		ProviderReference: derefString(item.ProviderReference),
		CheckoutURL:       derefString(item.CheckoutURL),
		Error:             derefString(item.Error),
		Metadata:          cloneMetadata(item.Metadata),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.CompletedAt != nil {
		resp.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func PaymentsToResponse(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func RollupRowsToResponse(rows []*repository.RevenueRollupRow) []*types.RevenueRollupBucket {
	result := make([]*types.RevenueRollupBucket, 0, len(rows))
	for _, row := range rows {
		result = append(result, &types.RevenueRollupBucket{
			Type:        types.PaymentType(row.Type),
			TypeName:    types.PaymentType(row.Type).String(),
			Currency:    row.Currency,
			Payments:    row.Payments,
			AmountCents: row.AmountCents,
		})
	}
	return result
}

func WalletToResponse(wallet *entity.Wallet, items []*entity.LedgerTransaction) *types.WalletResponse {
	if wallet == nil {
		return nil
	}

	entries := make([]*types.LedgerEntry, 0, len(items))
	for _, item := range items {
		entry := &types.LedgerEntry{
			ID:          item.ID,
			OrderID:     item.OrderID,
			Type:        item.Type,
			AmountCents: item.AmountCents,
			Currency:    item.Currency,
			CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		}
		if item.BalanceAfterCents != nil {
			after := *item.BalanceAfterCents
			entry.BalanceAfterCents = &after
		}
		entries = append(entries, entry)
	}

	return &types.WalletResponse{
		UserID:       wallet.UserID,
		BalanceCents: wallet.BalanceCents,
		Currency:     wallet.Currency,
		Transactions: entries,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
