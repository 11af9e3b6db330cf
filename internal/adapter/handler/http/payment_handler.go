package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
)

type PaymentHandler struct {
	usecase *usecase.PaymentUsecase
	logger  *zap.Logger
}

func NewPaymentHandler(usecase *usecase.PaymentUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// CreatePaymentLink answers 201 for a new link and 200 when an active one is reused
func (h *PaymentHandler) CreatePaymentLink(c echo.Context) error {
	orderID, err := uuidParam(c, "orderId")
	if err != nil {
		return err
	}
	var req CreatePaymentLinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.usecase.CreatePaymentLink(c.Request().Context(), orderID, req.ReturnURL)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

func (h *PaymentHandler) ChargeOrder(c echo.Context) error {
	orderID, err := uuidParam(c, "orderId")
	if err != nil {
		return err
	}
	var req ChargeOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.RequestID == "" {
		req.RequestID = c.Request().Header.Get("Idempotency-Key")
	}

	result, err := h.usecase.ChargeOrder(c.Request().Context(), orderID, usecase.ChargeRequest{
		PaymentMethodRef: req.PaymentMethodID,
		SaveCard:         req.SaveCard,
		CustomerRef:      req.CustomerID,
		RequestID:        req.RequestID,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Order charged",
		zap.String("order_id", orderID.String()),
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("status", string(result.Status)))
	return c.JSON(http.StatusCreated, result)
}

func (h *PaymentHandler) ListOrderPayments(c echo.Context) error {
	orderID, err := uuidParam(c, "orderId")
	if err != nil {
		return err
	}

	payments, err := h.usecase.ListOrderPayments(c.Request().Context(), orderID)
	if err != nil {
		return err
	}

	h.logger.Debug("Retrieved order payments",
		zap.String("order_id", orderID.String()),
		zap.Int("payment_count", len(payments)))
	return c.JSON(http.StatusOK, payments)
}

func (h *PaymentHandler) RecomputeOrderBalance(c echo.Context) error {
	orderID, err := uuidParam(c, "orderId")
	if err != nil {
		return err
	}

	balance, err := h.usecase.RecomputeOrderBalance(c.Request().Context(), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balance)
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	payment, err := h.usecase.GetPayment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req RefundPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.usecase.RefundPayment(c.Request().Context(), id, usecase.RefundRequest{
		Amount: req.Amount,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Payment refunded",
		zap.String("payment_id", id.String()),
		zap.String("amount", result.Amount.StringFixed(2)),
		zap.String("status", string(result.Status)))
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) SyncPaymentLinkStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.usecase.SyncPaymentLinkStatus(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) CancelPaymentLink(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req CancelPaymentLinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.usecase.CancelPaymentLink(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) SendReceipt(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	result, err := h.usecase.SendReceipt(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
