package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
)

type CustomerHandler struct {
	usecase *usecase.CustomerUsecase
	logger  *zap.Logger
}

func NewCustomerHandler(usecase *usecase.CustomerUsecase, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		usecase: usecase,
		logger:  logger,
	}
}

func (h *CustomerHandler) CreateOrGetCustomer(c echo.Context) error {
	var req CreateCustomerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	customer, err := h.usecase.CreateOrGetCustomer(c.Request().Context(), &provider.CustomerRequest{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if customer.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, newCustomerResponse(customer))
}

func (h *CustomerHandler) ListPaymentMethods(c echo.Context) error {
	methods, err := h.usecase.ListPaymentMethods(c.Request().Context(), c.Param("customerId"))
	if err != nil {
		return err
	}

	resp := make([]*PaymentMethodResponse, 0, len(methods))
	for _, pm := range methods {
		resp = append(resp, newPaymentMethodResponse(pm))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CustomerHandler) AttachPaymentMethod(c echo.Context) error {
	var req AttachPaymentMethodRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pm, err := h.usecase.AttachPaymentMethod(c.Request().Context(), c.Param("customerId"), req.PaymentMethodID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newPaymentMethodResponse(pm))
}

func (h *CustomerHandler) DetachPaymentMethod(c echo.Context) error {
	pm, err := h.usecase.DetachPaymentMethod(c.Request().Context(), c.Param("paymentMethodId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPaymentMethodResponse(pm))
}
