package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/nishant-k1/flushjohn-api-sub000/internal/adapter/handler/http"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/logger"
)

// Handlers groups the HTTP handlers mounted by the server
type Handlers struct {
	Payment  *handlers.PaymentHandler
	Webhook  *handlers.WebhookHandler
	Customer *handlers.CustomerHandler
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers Handlers
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.Server.ReadTimeout = cfg.Server.HTTP.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.HTTP.WriteTimeout

	// Middleware
	logger.WithEchoLogger(e, log)
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())

	origins := cfg.Server.HTTP.AllowedOrigins
	if len(origins) == 0 && cfg.Service.ClientURL != "" {
		origins = []string{cfg.Service.ClientURL}
	}
	if len(origins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, "Idempotency-Key"},
		}))
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		handlers: h,
	}
	s.setupRoutes()
	return s
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP exposes the router, mainly for tests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Webhook route (outside API versioning); the raw body is needed for signature checks
	s.echo.POST("/webhook", s.handlers.Webhook.HandleWebhook,
		middleware.BodyLimit(fmt.Sprintf("%dB", handlers.MaxWebhookBodyBytes)))

	v1 := s.echo.Group("/api/v1")

	orders := v1.Group("/orders/:orderId")
	orders.POST("/payment-links", s.handlers.Payment.CreatePaymentLink)
	orders.POST("/charges", s.handlers.Payment.ChargeOrder)
	orders.GET("/payments", s.handlers.Payment.ListOrderPayments)
	orders.POST("/balance/recompute", s.handlers.Payment.RecomputeOrderBalance)

	payments := v1.Group("/payments/:id")
	payments.GET("", s.handlers.Payment.GetPayment)
	payments.POST("/refunds", s.handlers.Payment.RefundPayment)
	payments.POST("/sync", s.handlers.Payment.SyncPaymentLinkStatus)
	payments.POST("/cancel", s.handlers.Payment.CancelPaymentLink)
	payments.POST("/receipt", s.handlers.Payment.SendReceipt)

	v1.POST("/customers", s.handlers.Customer.CreateOrGetCustomer)
	v1.GET("/customers/:customerId/payment-methods", s.handlers.Customer.ListPaymentMethods)
	v1.POST("/customers/:customerId/payment-methods", s.handlers.Customer.AttachPaymentMethod)
	v1.DELETE("/payment-methods/:paymentMethodId", s.handlers.Customer.DetachPaymentMethod)
}
