package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/anony/internal/api"
	"github.com/wuwenbin0122/anony/internal/completion"
	"github.com/wuwenbin0122/anony/internal/conversation"
	"github.com/wuwenbin0122/anony/internal/db"
	"github.com/wuwenbin0122/anony/internal/history"
	"github.com/wuwenbin0122/anony/internal/middleware"
	"github.com/wuwenbin0122/anony/internal/session"
	"github.com/wuwenbin0122/anony/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := db.NewKV(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("store: failed to connect", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := kv.Close(context.Background()); err != nil {
			logger.Warn("store: close error", zap.Error(err))
		}
	}()
	logger.Info("store connected", zap.String("driver", cfg.Store.Driver))

	go db.RunJanitor(ctx, kv, cfg.Store.PurgeInterval, logger)

	store := history.NewStore(kv, cfg.Chat.MaxTurns, cfg.Session.TTL)
	gateway := completion.NewGateway(cfg.Completion, logger)
	manager := conversation.NewManager(store, gateway, conversation.Options{
		SystemPrompt:    cfg.Chat.SystemPrompt,
		MaxMessageRunes: cfg.Chat.MaxMessageRunes,
	}, logger)
	sessions := session.NewResolver(cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.CookieSecure)

	router := setupRouter(api.NewHandler(manager, sessions, logger), logger)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Completion.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(handler *api.Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recover(logger), middleware.Logging(logger), middleware.SecurityHeaders())

	router.GET("/health", api.HandleHealth)
	handler.RegisterRoutes(router)

	return router
}
