package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/middlewares"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/payplanner/payplanner_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// readinessGate answers 503 for everything but /healthz until dependencies are up.
func readinessGate(ready *atomic.Bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !ready.Load() {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	// In production only CORS_ALLOWED_ORIGINS (comma-separated) may call the API.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if config.IsProduction() {
		cfg.AllowOrigins = splitAndTrim(allowedOrigins)
		if cfg.AllowOrigins == nil {
			cfg.AllowOrigins = []string{}
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", middlewares.CorrelationIdHeader)
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	cfg.AllowCredentials = !cfg.AllowAllOrigins
	return cfg
}

// rateLimiter is enabled with RATE_LIMIT_ENABLED=true and a REDIS_ADDRESS.
//
// Env:
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func rateLimiter() *middlewares.RateLimiter {
	if !config.BoolFromEnv("RATE_LIMIT_ENABLED", false) {
		return nil
	}
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		log.Printf("RATE_LIMIT_ENABLED=true but REDIS_ADDRESS is not set; rate limiting disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       config.IntFromEnv("REDIS_DB", 0),
	})
	limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
	window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	return middlewares.NewRateLimiter(client, limit, window)
}

// prepareDatabase migrates and seeds. Seeding is idempotent.
func prepareDatabase(ctx context.Context, logger *logrus.Logger) {
	if config.BoolFromEnv("SKIP_MIGRATIONS", false) {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		return
	}
	models.MigrateTable()
	if _, err := models.SeedSystemRoles(ctx); err != nil {
		config.LogError(logger, "Main", "prepareDatabase", "SeedSystemRoles", nil, err)
	}
	if err := models.SeedDictionaries(ctx); err != nil {
		config.LogError(logger, "Main", "prepareDatabase", "SeedDictionaries", nil, err)
	}
}

// startWorkers runs each worker in its own goroutine. The returned stop cancels them
// and blocks until all have returned; calling it again is a no-op.
func startWorkers(parent context.Context, workers ...func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	for _, run := range workers {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	return func() {
		cancel()
		wg.Wait()
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var ready atomic.Bool
	sweeper := workflow.NewOverdueSweeper(logger)

	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(readinessGate(&ready))
	r.Use(cors.New(corsConfig()))
	if limiter := rateLimiter(); limiter != nil {
		r.Use(limiter.RateLimitMiddleware)
	}
	r.Use(middlewares.ErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r, sweeper)
	r.NoRoute(customNotFoundHandler)

	// Listen before dependencies are up; the gate answers 503 meanwhile.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	prepareDatabase(sigCtx, logger)

	objectStorage, err := utils.NewObjectStorage(sigCtx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Fatal("object storage: " + err.Error())
	}
	models.SetDocumentStorage(objectStorage)

	sweeper.Locker = config.GetRedisLock()
	workerFuncs := []func(context.Context){sweeper.Run}
	// Events are written to the outbox only when a topic is configured.
	if config.PaymentEventsEnabled() {
		workerFuncs = append(workerFuncs, workflow.NewOutboxDispatcher(db, logger).Run)
	}
	stopWorkers := startWorkers(context.Background(), workerFuncs...)
	// Runs before the deferred sqlDB.Close so no worker transaction outlives the pool.
	defer stopWorkers()

	ready.Store(true)
	config.LogInfo(logger, "Main", "main", "server started", logrus.Fields{"port": port, "driver": config.DatabaseDriver()})

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers before draining requests.
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
