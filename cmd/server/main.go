package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wellness-chatbot/internal/assessment"
	"wellness-chatbot/internal/cache"
	"wellness-chatbot/internal/config"
	"wellness-chatbot/internal/core"
	"wellness-chatbot/internal/db"
	httpserver "wellness-chatbot/internal/http"
	"wellness-chatbot/internal/llm"
	"wellness-chatbot/internal/observability/metrics"
	"wellness-chatbot/pkg/logging"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting wellness chatbot", "env", cfg.Env, "port", cfg.Port)

	catalog, err := assessment.LoadCatalogFile(cfg.AssessmentCatalogPath)
	if err != nil {
		logger.Error("failed to load assessment catalog", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(reg)

	httpClient := &http.Client{Timeout: cfg.LLMTimeout}
	openAI := llm.WithObserver("openai", llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIChatModel,
		HTTPClient: httpClient,
	}), chatMetrics)
	perplexity := llm.WithObserver("perplexity", llm.NewPerplexityClient(llm.PerplexityConfig{
		APIKey:     cfg.PerplexityAPIKey,
		BaseURL:    cfg.PerplexityBaseURL,
		Model:      cfg.PerplexityModel,
		HTTPClient: httpClient,
	}), chatMetrics)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var (
		dbConn   *sql.DB
		repo     *db.Repository
		store    httpserver.ReportStore
		notifier httpserver.ReportNotifier
		pinger   httpserver.Pinger
	)
	if cfg.DatabaseURL != "" {
		startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		dbConn, err = db.Open(startCtx, cfg.DatabaseURL)
		if err == nil {
			err = db.Migrate(startCtx, dbConn)
		}
		cancel()
		if err != nil {
			logger.Error("failed to prepare database", "error", err)
			os.Exit(1)
		}
		defer dbConn.Close()
		repo = db.NewRepository(dbConn)
		n := db.NewNotifier(dbConn, cfg.ReportsNotifyChannel, logger)
		store, notifier, pinger = repo, n, dbConn
	} else {
		logger.Warn("DATABASE_URL not set; chat context and report endpoints are disabled")
	}

	var contextCache core.ContextCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable; context cache disabled", "error", err)
		} else {
			defer client.Close()
			redisCache := cache.NewRedisContextCache(client, "")
			contextCache = redisCache
			if repo != nil {
				listenForReports(ctx, cfg, dbConn, redisCache, logger)
			}
		}
	}

	var assembler *core.ContextAssembler
	if repo != nil && cfg.ContextEnabled {
		assembler = core.NewContextAssembler(repo, core.ContextOptions{
			Cache:        contextCache,
			CacheTTL:     cfg.ContextCacheTTL,
			CompanyDays:  cfg.CompanyContextDays,
			PersonalDays: cfg.PersonalContextDays,
			Logger:       logger,
		})
	}

	chat := core.NewChatService(core.Options{
		Catalog:     catalog,
		OpenAI:      openAI,
		Perplexity:  perplexity,
		Context:     assembler,
		ReportModel: cfg.OpenAIReportModel,
		Logger:      logger,
		Observer:    chatMetrics,
	})

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Server:             httpserver.NewServer(chat, store, notifier, pinger, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}
	logger.Info("server stopped")
}

// listenForReports drops cached company context whenever any instance saves
// a report for that company.
func listenForReports(ctx context.Context, cfg *config.Config, conn *sql.DB, c *cache.RedisContextCache, logger *logging.Logger) {
	n := db.NewNotifier(conn, cfg.ReportsNotifyChannel, logger)
	err := n.Listen(ctx, cfg.DatabaseURL, func(ctx context.Context, msg db.ReportSaved) {
		if err := c.Invalidate(ctx, msg.CompanyID); err != nil {
			logger.WarnContext(ctx, "context cache invalidation failed", "company_id", msg.CompanyID, "error", err)
		}
	})
	if err != nil {
		logger.Warn("report listener not started", "error", err)
	}
}
