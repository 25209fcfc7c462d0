package controller

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-proxypay/app/factory"
	"github.com/vibast-solutions/ms-go-proxypay/app/gateway"
	"github.com/vibast-solutions/ms-go-proxypay/app/mapper"
	"github.com/vibast-solutions/ms-go-proxypay/app/repository"
	"github.com/vibast-solutions/ms-go-proxypay/app/service"
	"github.com/vibast-solutions/ms-go-proxypay/app/types"
)

type PaymentController struct {
	paymentService    *service.PaymentService
	settlementService *service.SettlementService
	walletService     *service.WalletService
	rollupService     *service.RollupService
	logger            logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, settlementService *service.SettlementService, walletService *service.WalletService, rollupService *service.RollupService) *PaymentController {
	return &PaymentController{
		paymentService:    paymentService,
		settlementService: settlementService,
		walletService:     walletService,
		rollupService:     rollupService,
		logger:            factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePurchase(ctx echo.Context) error {
	req, err := types.NewCreatePurchaseRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreateProxyPurchase(ctx.Request().Context(), &service.ProxyPurchaseInput{
		UserID:        req.UserID,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		PlanType:      req.PlanType,
		Tier:          req.Tier,
		Bandwidth:     req.Bandwidth,
		Recurrence:    req.Recurrence,
		ProxyUsername: req.ProxyUsername,
		Network:       req.Network,
		BuyerEmail:    req.BuyerEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAmount):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Create purchase failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) CreateDeposit(ctx echo.Context) error {
	req, err := types.NewCreateDepositRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreateWalletDeposit(ctx.Request().Context(), &service.WalletDepositInput{
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Network:     req.Network,
		BuyerEmail:  req.BuyerEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidAmount):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Create deposit failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		c.logger.WithError(err).Error("Get payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), repository.PaymentFilter{
		UserID:    req.UserID,
		HasStatus: req.HasStatus,
		Status:    int32(req.Status),
		HasType:   req.HasType,
		Type:      int32(req.Type),
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		c.logger.WithError(err).Error("List payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *PaymentController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CancelPayment(ctx.Request().Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Cancel payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) GetWallet(ctx echo.Context) error {
	req, err := types.NewGetWalletRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	wallet, items, err := c.walletService.Statement(ctx.Request().Context(), req.UserID, req.Limit, req.Offset)
	if err != nil {
		c.logger.WithError(err).Error("Get wallet failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	if wallet == nil {
		return c.writeError(ctx, http.StatusNotFound, "wallet not found")
	}

	return ctx.JSON(http.StatusOK, mapper.WalletToResponse(wallet, items))
}

// HandleGatewayWebhook settles one gateway delivery. The status code tells the
// gateway whether to redeliver: 2xx stops retries, anything else keeps them
// coming, so signature failures answer 401 and processing failures 500.
func (c *PaymentController) HandleGatewayWebhook(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	_, err = c.settlementService.ApplyWebhook(ctx.Request().Context(), body, ctx.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrMissingSignature), errors.Is(err, gateway.ErrInvalidSignature):
			return c.writeError(ctx, http.StatusUnauthorized, "signature verification failed")
		case errors.Is(err, gateway.ErrMalformedPayload):
			return c.writeError(ctx, http.StatusBadRequest, "malformed payload")
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		default:
			c.logger.WithError(err).Error("Webhook settlement failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookResponse{Success: true})
}

func (c *PaymentController) RevenueRollup(ctx echo.Context) error {
	req, err := types.NewRevenueRollupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	from, err := time.Parse(time.RFC3339, req.From)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, req.To)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "to must be RFC3339")
	}

	rows, err := c.rollupService.RevenueRollup(ctx.Request().Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, "to must be after from")
		}
		c.logger.WithError(err).Error("Revenue rollup failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.RevenueRollupResponse{
		From:    from.UTC().Format(time.RFC3339),
		To:      to.UTC().Format(time.RFC3339),
		Buckets: mapper.RollupRowsToResponse(rows),
	})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
