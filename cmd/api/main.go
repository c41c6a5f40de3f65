package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"rollcall/internal/apiclient"
	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/handler"
	"rollcall/internal/history"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/ledger"
	"rollcall/internal/logging"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/schedule"
	"rollcall/internal/session"
	"rollcall/internal/store"
	"rollcall/internal/workflow"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	usesRedis := cfg.SessionBackend == "redis" || cfg.QueueBackend == "redis"

	var sessions session.Store
	if cfg.SessionBackend == "redis" {
		sessions = session.NewRedis(redisClient.Client, "")
	} else {
		sessions = session.NewInMemory()
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, logger)
	} else {
		q = queue.NewInMemory(64)
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database not reachable, submission ledger disabled", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	var lister handler.SubmissionLister
	if db != nil {
		if cfg.MigrationsEnabled {
			if err := store.Migrate(ctx, db.Client, logger); err != nil {
				return err
			}
		}
		repo := ledger.NewRepository(db.Client)
		lister = repo
		if cfg.QueueBackend != "redis" {
			// Only this process can see the in-memory queue.
			messages, err := q.Consume(ctx)
			if err != nil {
				return err
			}
			go ledger.NewConsumer(repo, logger).Run(ctx, messages)
		}
	}

	var submitOpts []attendance.Option
	if cfg.QueueBackend == "redis" || db != nil {
		submitOpts = append(submitOpts, attendance.WithRecorder(ledger.NewPublisher(q)))
	}

	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	provider := roster.NewProvider(client, language.English)
	engine := workflow.NewEngine(workflow.Services{
		Catalog:   provider,
		History:   history.NewViewer(client),
		Day:       client,
		Schedule:  schedule.NewResolver(client, logger),
		Submitter: attendance.NewSubmitter(client, loc, logger, submitOpts...),
	}, sessions, cfg.SessionTTL, logger)

	h := handler.New(handler.Deps{
		Workflow: engine,
		Catalog:  provider,
		Intake:   roster.NewIntake(client, logger),
		Editor:   schedule.NewEditor(client, logger),
		Ledger:   lister,
		Tokens:   handler.Tokens{Issuer: cfg.JWTIssuer, Key: cfg.JWTSigningKey, TTL: cfg.SessionTTL},
		Location: loc,
		Logger:   logger,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := !usesRedis || redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	h.Register(r, limiter.GinMiddleware())

	if cfg.WebDir != "" {
		r.StaticFile("/", filepath.Join(cfg.WebDir, "index.html"))
		r.Static("/static", filepath.Join(cfg.WebDir, "static"))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.APITimeout),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("api", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// writeTimeout leaves room for a two-pass submission. An unbounded API
// timeout leaves responses unbounded too.
func writeTimeout(api time.Duration) time.Duration {
	if api <= 0 {
		return 0
	}
	return 2*api + 15*time.Second
}
