package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreatePurchaseRequest struct {
	UserID      uint64 `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	PlanType      string `json:"plan_type"`
	Tier          string `json:"tier"`
	Bandwidth     string `json:"bandwidth"`
	Recurrence    string `json:"recurrence"`
	ProxyUsername string `json:"proxy_username"`

	Network    string `json:"network"`
	BuyerEmail string `json:"buyer_email"`
}

func NewCreatePurchaseRequestFromContext(ctx echo.Context) (*CreatePurchaseRequest, error) {
	var body CreatePurchaseRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.PlanType = strings.ToLower(strings.TrimSpace(body.PlanType))
	body.Tier = strings.TrimSpace(body.Tier)
	body.Bandwidth = strings.TrimSpace(body.Bandwidth)
	body.Recurrence = strings.ToLower(strings.TrimSpace(body.Recurrence))
	body.ProxyUsername = strings.TrimSpace(body.ProxyUsername)
	body.Network = strings.TrimSpace(body.Network)
	body.BuyerEmail = strings.TrimSpace(body.BuyerEmail)

	return &body, nil
}

func (r *CreatePurchaseRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.PlanType == "" {
		return errors.New("plan_type is required")
	}
	if r.Tier == "" {
		return errors.New("tier is required")
	}
	if r.Bandwidth == "" {
		return errors.New("bandwidth is required")
	}
	if r.ProxyUsername == "" {
		return errors.New("proxy_username is required")
	}
	if r.Recurrence != "" && r.Recurrence != "one_time" && r.Recurrence != "recurring" {
		return errors.New("recurrence must be one_time or recurring")
	}
	return nil
}

type CreateDepositRequest struct {
	UserID      uint64 `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	Network    string `json:"network"`
	BuyerEmail string `json:"buyer_email"`
}

func NewCreateDepositRequestFromContext(ctx echo.Context) (*CreateDepositRequest, error) {
	var body CreateDepositRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Network = strings.TrimSpace(body.Network)
	body.BuyerEmail = strings.TrimSpace(body.BuyerEmail)

	return &body, nil
}

func (r *CreateDepositRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.AmountCents <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type GetPaymentRequest struct {
	OrderID string
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	return &GetPaymentRequest{OrderID: strings.TrimSpace(ctx.Param("order_id"))}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	return nil
}

type ListPaymentsRequest struct {
	UserID uint64

	HasStatus bool
	Status    PaymentStatus

	HasType bool
	Type    PaymentType

	Limit  int32
	Offset int32
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Limit:  100,
		Offset: 0,
	}

	if userRaw := strings.TrimSpace(ctx.QueryParam("user_id")); userRaw != "" {
		userID, err := strconv.ParseUint(userRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.UserID = userID
	}

	if statusRaw := strings.TrimSpace(ctx.QueryParam("status")); statusRaw != "" {
		status, err := strconv.ParseInt(statusRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.HasStatus = true
		req.Status = PaymentStatus(status)
	}

	if typeRaw := strings.TrimSpace(ctx.QueryParam("type")); typeRaw != "" {
		paymentType, err := strconv.ParseInt(typeRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.HasType = true
		req.Type = PaymentType(paymentType)
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.HasStatus && r.Status.String() == "unspecified" {
		return errors.New("invalid status")
	}
	if r.HasType && r.Type.String() == "unspecified" {
		return errors.New("invalid type")
	}
	return nil
}

type GetWalletRequest struct {
	UserID uint64

	Limit  int32
	Offset int32
}

func NewGetWalletRequestFromContext(ctx echo.Context) (*GetWalletRequest, error) {
	req := &GetWalletRequest{
		Limit:  50,
		Offset: 0,
	}

	userID, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("user_id")), 10, 64)
	if err != nil {
		return nil, err
	}
	req.UserID = userID

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *GetWalletRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

type RevenueRollupRequest struct {
	From string
	To   string
}

func NewRevenueRollupRequestFromContext(ctx echo.Context) (*RevenueRollupRequest, error) {
	return &RevenueRollupRequest{
		From: strings.TrimSpace(ctx.QueryParam("from")),
		To:   strings.TrimSpace(ctx.QueryParam("to")),
	}, nil
}

func (r *RevenueRollupRequest) Validate() error {
	if r.From == "" || r.To == "" {
		return errors.New("from and to are required")
	}
	return nil
}
