package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
	"pairwave/internal/core/services"
	"pairwave/internal/infrastructure/collaborators"
	"pairwave/internal/infrastructure/middleware"
	"pairwave/internal/infrastructure/monitoring"
	"pairwave/internal/infrastructure/repositories/memory"
	redisrepo "pairwave/internal/infrastructure/repositories/redis"
	"pairwave/internal/infrastructure/signal"
	"pairwave/pkg/circuitbreaker"
	"pairwave/pkg/config"
	"pairwave/pkg/logger"
	"pairwave/pkg/retry"
	"pairwave/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/pairwave/config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if cfg == nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Monitoring.PrometheusEnabled,
		ServiceName: "pairwave-gateway",
		Environment: os.Getenv("PAIRWAVE_ENV"),
		SampleRate:  1.0,
	})
	if err != nil {
		sugar.Warnw("tracing init failed, continuing without it", "error", err)
	} else {
		defer tp.Shutdown(context.Background())
	}

	var redisClient *redis.Client
	var blockStore ports.BlockStore = collaborators.NoopBlockStore{}
	if cfg.Redis.Enabled {
		redisClient, err = redisrepo.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)
		if err != nil {
			sugar.Fatalw("failed to connect to redis", "error", err)
		}
		defer redisrepo.CloseRedisClient(redisClient)

		retryCfg := retry.Config{
			Enabled:      cfg.Resilience.Retry.Enabled,
			MaxAttempts:  cfg.Resilience.Retry.MaxAttempts,
			InitialDelay: cfg.Resilience.Retry.InitialDelay,
			MaxDelay:     cfg.Resilience.Retry.MaxDelay,
			Multiplier:   cfg.Resilience.Retry.Multiplier,
			Jitter:       cfg.Resilience.Retry.Jitter,
		}
		cbCfg := circuitbreaker.Config{
			FailureThreshold:    cfg.Resilience.CircuitBreaker.FailureThreshold,
			SuccessThreshold:    cfg.Resilience.CircuitBreaker.SuccessThreshold,
			Timeout:             cfg.Resilience.CircuitBreaker.Timeout,
			MaxRequestsHalfOpen: cfg.Resilience.CircuitBreaker.MaxRequestsHalfOpen,
		}
		blockStore = collaborators.NewRedisBlockStore(redisClient, retryCfg, cbCfg, cfg.Redis.BlockCacheTTL, sugar)
	}

	sessionRegistry := memory.NewSessionRegistry()
	queueRepo := memory.NewQueueRepository()
	pairingRepo := memory.NewPairingRepository()

	prometheusCollector := monitoring.NewPrometheusCollector()
	metrics := monitoring.NewBatchedCollector(prometheusCollector, 50, 2*time.Second)
	defer metrics.Stop()

	identity := collaborators.NewJWTIdentityStore(cfg.Auth.JWTSecret)
	moderator := collaborators.NewKeywordModerator(cfg.Moderation.BannedTerms, cfg.Moderation.VetoReason)

	tuning := services.Tuning{
		CrossTierWaitMs:     cfg.Matchmaking.CrossTierWaitMs,
		MaxStarvationOffset: float64(cfg.Matchmaking.MaxStarvationOffset),
		WaitFairnessCap:     float64(cfg.Matchmaking.WaitFairnessCap),
	}
	queueService := services.NewQueueService(queueRepo, tuning, sugar)
	pairingService := services.NewPairingService(pairingRepo, sugar)
	relayService := services.NewRelayService(pairingService, sessionRegistry, moderator, metrics, sugar)

	iceServers := make([]domain.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		iceServers = append(iceServers, domain.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential})
	}

	var searchDriver *services.SearchDriverService
	searchDriver = services.NewSearchDriverService(
		queueService,
		pairingService,
		sessionRegistry,
		metrics,
		iceServers,
		func(a, b domain.SessionID) { searchDriver.Cancel(b) },
		sugar,
	)

	coordinator := services.NewSessionCoordinator(
		sessionRegistry,
		queueService,
		pairingService,
		searchDriver,
		relayService,
		identity,
		blockStore,
		time.Duration(cfg.Matchmaking.RequeueDelayMs)*time.Millisecond,
		sugar,
	)

	gateway := signal.NewGateway(coordinator, cfg.Gateway.PingInterval, cfg.Gateway.ReadTimeout, cfg.Gateway.WriteTimeout, sugar)

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddQueueCheck(queueRepo, 10*time.Second, 2*time.Second)
	if cfg.Redis.Enabled {
		healthChecker.AddRedisCheck(redisClient, 10*time.Second, 2*time.Second)
	}

	stopReporter := make(chan struct{})
	go reportGaugesPeriodically(queueService, pairingRepo, prometheusCollector, cfg.Monitoring.MetricsInterval, stopReporter)
	defer close(stopReporter)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.ErrorHandlerMiddleware(sugar))

	router.GET("/health", gateway.HealthCheck)
	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authorized := router.Group("/")
	authorized.Use(middleware.AuthMiddleware(identity))
	authorized.GET("/ws", gateway.Upgrade)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sugar.Infow("gateway listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}

// reportGaugesPeriodically refreshes the point-in-time gauges (queue size,
// active pairings) that BatchedCollector applies immediately rather than
// through the batcher, since a matchmaking service emits them on demand
// rather than as a stream of discrete events.
func reportGaugesPeriodically(
	queue *services.QueueService,
	pairingRepo *memory.PairingRepository,
	collector *monitoring.PrometheusCollector,
	interval time.Duration,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snapshot := queue.Snapshot(context.Background())
			collector.UpdateQueueSnapshot(snapshot)
			collector.SetActivePairings(pairingRepo.Count())
		}
	}
}
