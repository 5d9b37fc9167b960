// Package api exposes the gateway over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vitwit/paygate/intent"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
	"golang.org/x/time/rate"
)

// Gateway is the part of paygate.Gateway the HTTP layer needs.
type Gateway interface {
	CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.CreatedPayment, error)
	ExecutePayment(ctx context.Context, req *types.ExecutePaymentRequest) (*types.ExecutionResult, error)
	GetPayment(ctx context.Context, paymentID string) (*types.PaymentRecord, error)
	CheckBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error)
	Describe(ctx context.Context, baseURL string) (*intent.Descriptor, error)
	IntentVariant() types.IntentVariant
	DepositMerchant() string
	Network() types.Network
}

// Headers accepted on cross-origin requests.
var AllowHeaders = []string{
	"Content-Type", "Authorization", "X-CSRF-Token", "X-Requested-With", "Accept",
	"Accept-Version", "Content-Length", "Content-MD5", "Date", "X-Api-Version",
}

var AllowMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
}

type ServerConfig struct {
	BodyLimit string
	RateLimit float64
	RateBurst int

	// Installs the Sentry middleware. sentry.Init must have been called.
	EnableSentry bool
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(gw Gateway, cfg ServerConfig, log logger.Logger) *echo.Echo {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "64K"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = HTTPErrorHandler(log)
	e.Validator = &CustomValidator{Validator: utils.Validator()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: AllowMethods,
		AllowHeaders: AllowHeaders,
	}))
	if cfg.RateLimit > 0 {
		e.Use(createRateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}
	e.Use(createLoggingMiddleware(log))

	// sentry init needs to happen before the middleware is added
	if cfg.EnableSentry {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}

	RegisterRoutes(e, gw)
	return e
}

// RegisterRoutes mounts the gateway endpoints on e.
func RegisterRoutes(e *echo.Echo, gw Gateway) {
	gateway := NewGatewayController(gw)
	payment := NewPaymentController(gw)
	balance := NewBalanceController(gw)
	health := NewHealthController(gw)

	e.GET("/health", health.Health)

	e.GET("/api/gateway", gateway.Describe)
	e.POST("/api/gateway", gateway.Submit)

	e.POST("/api/payment", payment.Create)
	e.GET("/api/payment/:paymentId", payment.Get)

	e.GET("/api/balance", balance.Check)
}

func createRateLimitMiddleware(requestsPerSecond float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(requestsPerSecond), Burst: burst},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
	})
}

func createLoggingMiddleware(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request", map[string]any{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"requestId": v.RequestID,
				"remoteIp":  v.RemoteIP,
			})
			return nil
		},
	})
}

// baseURL reconstructs the public origin of the request.
func baseURL(c echo.Context) string {
	host := c.Request().Host
	if host == "" {
		host = "localhost:3000"
	}
	return strings.ToLower(c.Scheme()) + "://" + host
}
