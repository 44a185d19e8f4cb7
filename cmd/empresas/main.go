package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/empresas/internal/empresas/auth"
	"github.com/gartstein/empresas/internal/empresas/config"
	"github.com/gartstein/empresas/internal/empresas/controller"
	"github.com/gartstein/empresas/internal/empresas/db"
	"github.com/gartstein/empresas/internal/empresas/events"
	"github.com/gartstein/empresas/internal/empresas/handlers"
	"github.com/gartstein/empresas/internal/empresas/loader"
	"github.com/gartstein/empresas/internal/empresas/render"
	"github.com/gartstein/empresas/internal/empresas/schema"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	pagerIdle     = 30 * time.Minute
	sessionSweep  = 10 * time.Minute
	dbConnRetries = 0
)

type auditProducer interface {
	Produce(event events.Event)
	Close()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := db.Connect(ctx, cfg.Database(), dbConnRetries, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	producer := initProducer(cfg, logger)
	defer producer.Close()

	resolver := schema.NewResolver()
	companyLoader := loader.NewLoader(repo, resolver, logger)
	companySvc := controller.NewCompanyService(repo, companyLoader, resolver, producer, cfg.Table, logger)

	sessions := auth.NewSessions(repo, cfg.JWTSecret, cfg.SessionTTL, logger)
	renderer, err := render.NewRenderer()
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	handler := handlers.NewHandler(handlers.Deps{
		Sessions:       sessions,
		Login:          auth.NewLoginFlow(sessions, logger),
		Cookies:        auth.Cookies{Name: auth.CookieName(cfg.HostRef()), Secure: cfg.SecureCookies()},
		Loader:         companyLoader,
		Pagers:         loader.NewPagers(pagerIdle),
		Companies:      companySvc,
		Renderer:       renderer,
		DB:             repo,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	go sweepSessions(ctx, repo, logger)

	server := handlers.NewServer(cfg.HTTPPort, handler.Router(), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// initProducer connects the audit producer, or logs events locally when no
// brokers are configured or kafka is unreachable.
func initProducer(cfg *config.Config, logger *zap.Logger) auditProducer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, audit events are only logged")
		return events.NewNopProducer(logger)
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Warn("failed to initialize Kafka producer, audit events are only logged", zap.Error(err))
		return events.NewNopProducer(logger)
	}
	return producer
}

func sweepSessions(ctx context.Context, repo *db.Repository, logger *zap.Logger) {
	ticker := time.NewTicker(sessionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Warn("failed to delete expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions deleted", zap.Int64("count", n))
			}
		}
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down the server.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Server stopped properly")
}
