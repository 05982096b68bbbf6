package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/adapter/chromedp_fetcher"
	"github.com/user/scrapex-service/internal/adapter/dns"
	"github.com/user/scrapex-service/internal/adapter/httpfetch"
	"github.com/user/scrapex-service/internal/adapter/llm"
	"github.com/user/scrapex-service/internal/adapter/payment"
	"github.com/user/scrapex-service/internal/adapter/postgres"
	redis_adapter "github.com/user/scrapex-service/internal/adapter/redis"
	"github.com/user/scrapex-service/internal/adapter/supabase"
	"github.com/user/scrapex-service/internal/adapter/voice"
	"github.com/user/scrapex-service/internal/adapter/webhook"
	"github.com/user/scrapex-service/internal/compliance"
	"github.com/user/scrapex-service/internal/delivery/http/handler"
	"github.com/user/scrapex-service/internal/delivery/http/middleware"
	"github.com/user/scrapex-service/internal/delivery/http/router"
	"github.com/user/scrapex-service/internal/repository"
	"github.com/user/scrapex-service/internal/usecase"
	"github.com/user/scrapex-service/pkg/config"
	"github.com/user/scrapex-service/pkg/logger"
	"github.com/user/scrapex-service/pkg/metrics"
)

const (
	providerTimeout  = 30 * time.Second
	renderPoolSize   = 2
	shutdownDeadline = 10 * time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		// The logger is not up yet.
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("Logger initialized", zap.String("level", cfg.LogLevel))

	// --- Metrics ---
	metrics.Init()
	log.Info("Metrics initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connections ---
	dbpool, err := postgres.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		log.Fatal("Unable to apply database schema", zap.Error(err))
	}
	log.Info("PostgreSQL connection pool established")

	rdb, err := redis_adapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("Unable to connect to Redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	log.Info("Redis connection established")

	// --- Repositories ---
	jobRepo := postgres.NewJobRepo(dbpool)
	callRepo := postgres.NewCallRepo(dbpool)
	paymentRepo := postgres.NewPaymentRepo(dbpool)
	apiKeyRepo := postgres.NewAPIKeyRepo(dbpool)
	webhookRepo := postgres.NewWebhookRepo(dbpool)
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	dedupRepo := redis_adapter.NewDedupRepo(rdb)
	events := redis_adapter.NewEventPublisher(rdb)

	// --- Providers ---
	fetcher := httpfetch.NewFetcher(cfg.ScrapeTimeout(), cfg.Proxies(), log)
	renderer := chromedp_fetcher.NewChromedpFetcher(renderPoolSize, cfg.ScrapeTimeout(), log)
	defer renderer.Close()

	poster := webhook.NewPoster(cfg.WebhookTimeout())
	resolver := dns.NewDoHResolver(cfg.DoHEndpoint, providerTimeout)

	var textGen repository.TextGenerator
	if cfg.GeminiAPIKey != "" {
		textGen = llm.NewGemini(llm.DefaultGeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, providerTimeout)
	} else {
		log.Warn("GEMINI_API_KEY not set, lead scoring uses the heuristic only")
	}

	voiceProvider := newVoiceProvider(cfg)
	log.Info("Call provider selected", zap.String("provider", voiceProvider.Name()))

	checker, err := compliance.NewChecker(cfg.ComplianceTimezone, cfg.DoNotCallNumbers())
	if err != nil {
		log.Fatal("Invalid compliance configuration", zap.Error(err))
	}

	var tokens repository.TokenVerifier
	if v := supabase.NewVerifier(cfg.SupabaseURL, cfg.SupabaseKey); v != nil {
		tokens = v
	} else {
		log.Warn("Supabase not configured, only API keys are accepted")
	}

	// --- Use Cases ---
	scheduler := usecase.NewScheduler(jobRepo, queueRepo, events, log)
	webhooks := usecase.NewWebhookManager(webhookRepo, poster, log)
	leads := usecase.NewLeadScorer(textGen, log)
	jobs := usecase.NewJobManager(jobRepo, queueRepo, dedupRepo, events, scheduler, cfg.DeduplicationWindow(), log)
	apiKeys := usecase.NewAPIKeyManager(apiKeyRepo, log)

	crm := usecase.NewCRMSyncer(poster, cfg.GHLWebhookURL, cfg.SheetsWebhookURL, cfg.GHLMaxAttempts, cfg.GHLInitialBackoff(), log)
	billing := usecase.NewBillingManager(paymentRepo, webhooks, log,
		payment.NewSquare(cfg.SquareBaseURL, cfg.SquareAccessToken, cfg.SquareLocationID, cfg.CheckoutSuccessURL, providerTimeout),
		payment.NewStripe(payment.DefaultStripeBaseURL, cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, providerTimeout),
	)
	calls := usecase.NewCallManager(callRepo, voiceProvider, checker, leads, webhooks, cfg.RetellWebhookSecret, log)
	health := usecase.NewHealthChecker(postgres.NewPinger(dbpool), redis_adapter.NewPinger(rdb))

	deps := handler.Deps{
		Jobs:       jobs,
		Facilities: usecase.NewFacilityScraper(fetcher, log),
		Leads:      leads,
		Calls:      calls,
		Webhooks:   webhooks,
		CRM:        crm,
		Email:      usecase.NewEmailVerifier(resolver),
		Billing:    billing,
		APIKeys:    apiKeys,
		Health:     health,
	}

	// --- Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	pool := usecase.NewWorkerPool(jobRepo, queueRepo, events, webhooks, fetcher, renderer,
		cfg.ScrapeWorkers, cfg.QueuePollInterval(), log).WithLeadPredictor(leads)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(workerCtx)
	}()
	log.Info("Worker pool started", zap.Int("workers", cfg.ScrapeWorkers))

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Unable to start scheduler", zap.Error(err))
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(deps, log)
	httpRouter := router.New(apiHandler,
		middleware.NewAuthenticator(apiKeys, tokens, log),
		middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		log,
	)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      130 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		}
	}

	// Cron first so no new runs are queued, then drain workers, then HTTP.
	<-scheduler.Stop().Done()
	cancelWorkers()
	wg.Wait()
	log.Info("Workers stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}

func newVoiceProvider(cfg *config.Config) repository.VoiceProvider {
	switch cfg.CallProvider {
	case "retell":
		return voice.NewRetell(voice.DefaultRetellBaseURL, cfg.RetellAPIKey, cfg.RetellAgentID, cfg.RetellFromNumber, providerTimeout)
	case "makecom":
		return voice.NewMakecom(cfg.MakecomWebhookURL, providerTimeout)
	default:
		return voice.NewSimulated()
	}
}
