package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"kakeibo/internal/backend"
	"kakeibo/internal/cache"
	"kakeibo/internal/chart"
	"kakeibo/internal/cli"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		// Logging is not configured yet.
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, false)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	analytics := services.NewAnalyticsService(res.Store, cfg.AnalyticsCacheTTL, m, logger)
	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
	janitor.Register(analytics.Cache())
	janitor.Start(cfg.AnalyticsCacheTTL)

	expenses := services.NewExpenseService(res.Store, res.Publisher(), analytics, m, logger)

	checks := make(map[string]apphttp.Check, len(res.Checks))
	for name, check := range res.Checks {
		checks[name] = apphttp.Check(check)
	}

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerSecond = cfg.RateLimit
	rl.Burst = cfg.RateBurst

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:  expenses,
		Analytics: analytics,
		Renderer:  chart.NewRenderer(chart.CurrencyTicks{Locale: cfg.ChartLocale, Suffix: cfg.CurrencySuffix}),
		Logger:    logger,
		Metrics:   m,
		Gatherer:  reg,
		Checks:    checks,
		RateLimit: rl,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	// ListenAndServe returns as soon as Shutdown starts; drained waits for
	// in-flight requests before the store is closed.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.AMQP != nil,
		"chart_locale", cfg.ChartLocale)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", "error", err)
		cancel()
	}
	<-drained

	janitor.Stop()
	if err := res.Close(); err != nil {
		logger.Error("Cleanup failed", "error", err)
	}
	logger.Info("Server stopped")
}
