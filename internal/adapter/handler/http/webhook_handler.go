package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/nishant-k1/flushjohn-api-sub000/internal/domain/errors"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/usecase"
	apperrors "github.com/nishant-k1/flushjohn-api-sub000/pkg/errors"
)

// MaxWebhookBodyBytes caps the webhook payload read
const MaxWebhookBodyBytes = int64(65536)

type WebhookHandler struct {
	usecase *usecase.WebhookUsecase
	logger  *zap.Logger
}

func NewWebhookHandler(usecase *usecase.WebhookUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// HandleWebhook verifies the raw body against the Stripe-Signature header.
// Oversized bodies get 413 and bad signatures 400. Any other failure answers 500 so
// the gateway delivers the event again; the error handler logs it with the
// cause's code, so a Stripe outage shows as BAD_GATEWAY.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			h.logger.Warn("Webhook body over limit", zap.Int64("limit", MaxWebhookBodyBytes))
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "webhook body too large")
		}
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "failed to read request body")
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	outcome, err := h.usecase.HandleGatewayEvent(c.Request().Context(), payload, signature)
	if err != nil {
		var validation *domainErrors.ValidationError
		if errors.As(err, &validation) {
			return err
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook processing failed").
			SetInternal(apperrors.Wrap(err, "webhook processing failed"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
		"outcome":  outcome,
	})
}
