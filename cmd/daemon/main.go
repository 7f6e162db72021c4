package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nukefarm/internal/client/chaingpt"
	"nukefarm/internal/client/gemini"
	"nukefarm/internal/client/polymarket/clob"
	polymarketgamma "nukefarm/internal/client/polymarket/gamma"
	"nukefarm/internal/client/turnstile"
	"nukefarm/internal/config"
	cronrunner "nukefarm/internal/cron"
	"nukefarm/internal/db"
	"nukefarm/internal/handler"
	"nukefarm/internal/logger"
	"nukefarm/internal/pipeline"
	gormrepository "nukefarm/internal/repository/gorm"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("NF_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("NF_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	gammaClient := polymarketgamma.NewClient(&http.Client{Timeout: cfg.Gamma.Timeout}, cfg.Gamma.BaseURL)
	clobClient := clob.NewClient(&http.Client{Timeout: cfg.Clob.Timeout}, cfg.Clob.BaseURL)
	chaingptClient := chaingpt.NewClient(&http.Client{Timeout: cfg.ChainGPT.Timeout}, cfg.ChainGPT.BaseURL, cfg.ChainGPT.APIKey, logger)
	geminiClient := gemini.NewClient(&http.Client{Timeout: cfg.Gemini.Timeout}, cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model)
	turnstileClient := turnstile.NewClient(&http.Client{Timeout: cfg.Turnstile.Timeout}, cfg.Turnstile.BaseURL, cfg.Turnstile.SecretKey)

	store := gormrepository.New(dbConn.Gorm)

	indexer := &pipeline.Indexer{
		Source: gammaClient,
		Repo:   store,
		Config: cfg.Indexer,
		Logger: logger,
	}
	scorer := &pipeline.Scorer{
		Repo:   store,
		AI:     chaingptClient,
		Config: cfg.Scorer,
		Logger: logger,
	}
	analyzer := &pipeline.Analyzer{
		Repo:    store,
		Markets: gammaClient,
		Prices:  clobClient,
		AI:      geminiClient,
		Config:  cfg.Analyzer,
		Logger:  logger,
	}
	daemon := &pipeline.Daemon{
		Indexer: indexer,
		Scorer:  scorer,
		Config:  cfg.Indexer,
		Logger:  logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(cfg.Server))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	analyzeHandler := &handler.AnalyzeHandler{
		Runner:   analyzer,
		Verifier: turnstileClient,
		Limiter:  handler.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		Open:     cfg.Server.OpenAnalyze,
		Logger:   logger,
	}
	analyzeHandler.Register(engine)
	eventsHandler := &handler.EventsHandler{Repo: store, Logger: logger}
	eventsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Analyzer.AutoEnabled {
		_, err := cronRunner.Add("auto-analysis", cfg.Analyzer.AutoSchedule, func(ctx context.Context) {
			result := analyzer.AnalyzeRandom(ctx)
			logger.Info("scheduled analysis pass",
				zap.Bool("success", result.Success),
				zap.String("message", result.Message),
				zap.String("event_id", result.EventID))
		})
		if err != nil {
			logger.Warn("cron register auto-analysis failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("daemon stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if cfg.OpenAnalyze || len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}
