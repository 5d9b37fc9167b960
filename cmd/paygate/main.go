package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitwit/paygate"
	"github.com/vitwit/paygate/api"
	"github.com/vitwit/paygate/config"
	"github.com/vitwit/paygate/events"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("Failed to load .env file")
	}

	c, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	zl, err := logger.NewZapLogger(c.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer zl.Sync()

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			zl.Error("sentry init error", map[string]any{"error": err})
		}
		defer sentry.Flush(2 * time.Second)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()

	opts := []paygate.Option{
		paygate.WithLogger(zl),
		paygate.WithTimeout(c.RequestTimeout),
	}

	st, err := openStore(startupCtx, c, zl)
	if err != nil {
		zl.Error("failed to open payment store", map[string]any{"error": err, "backend": c.StoreBackend})
		os.Exit(1)
	}
	opts = append(opts, paygate.WithStore(st))

	if c.RabbitMQUri != "" {
		publisher, err := events.DialAMQP(c.RabbitMQUri, c.RabbitMQExchange, time.Minute)
		if err != nil {
			zl.Error("failed to connect to rabbitmq", map[string]any{"error": err})
			os.Exit(1)
		}
		opts = append(opts, paygate.WithPublisher(publisher))
	}

	registry := prometheus.NewRegistry()
	if c.EnablePrometheus {
		recorder, err := metrics.NewPrometheusRecorder(registry)
		if err != nil {
			zl.Error("failed to register metrics", map[string]any{"error": err})
			os.Exit(1)
		}
		opts = append(opts, paygate.WithMetrics(recorder))
	}

	gw, err := paygate.New(c.GatewayConfig(), opts...)
	if err != nil {
		zl.Error("failed to initialise gateway", map[string]any{"error": err})
		os.Exit(1)
	}
	defer gw.Close()

	e := api.NewServer(gw, api.ServerConfig{
		BodyLimit:    c.BodyLimit,
		RateLimit:    c.DefaultRateLimit,
		RateBurst:    c.BurstRateLimit,
		EnableSentry: c.SentryDSN != "",
	}, zl.Named("http"))

	var echoPrometheus *echo.Echo
	if c.EnablePrometheus {
		echoPrometheus = echo.New()
		echoPrometheus.HideBanner = true
		echoPrometheus.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		go func() {
			zl.Info("starting prometheus", map[string]any{"port": c.PrometheusPort})
			if err := echoPrometheus.Start(fmt.Sprintf(":%d", c.PrometheusPort)); err != nil && err != http.ErrServerClosed {
				zl.Error("prometheus server stopped", map[string]any{"error": err})
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zl.Info("starting server", map[string]any{"port": c.Port, "network": c.Network})
		if err := e.Start(fmt.Sprintf(":%d", c.Port)); err != nil && err != http.ErrServerClosed {
			zl.Error("shutting down the server", map[string]any{"error": err})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("failed to shut down server", map[string]any{"error": err})
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(shutdownCtx); err != nil {
			zl.Error("failed to shut down prometheus", map[string]any{"error": err})
		}
	}
	zl.Info("paygate exiting gracefully", nil)
}

func openStore(ctx context.Context, c *config.Config, l logger.Logger) (store.Store, error) {
	if c.StoreBackend != config.StoreDynamoDB {
		return store.NewMemoryStore(store.WithLogger(l)), nil
	}

	client, err := store.NewDynamoClient(ctx, c.DynamoConfig())
	if err != nil {
		return nil, err
	}
	if c.DynamoEnsureTable {
		if err := store.EnsureTable(ctx, client, c.DynamoTable, 2*time.Minute); err != nil {
			return nil, err
		}
	}
	return store.NewDynamoStore(client, c.DynamoTable, store.WithLogger(l)), nil
}
