package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/reminder/common/id"
	"basegraph.app/reminder/common/logger"
	"basegraph.app/reminder/common/otel"
	"basegraph.app/reminder/core/config"
	"basegraph.app/reminder/internal/bot"
	"basegraph.app/reminder/internal/botframework"
	"basegraph.app/reminder/internal/http/middleware"
	httprouter "basegraph.app/reminder/internal/http/router"
	"basegraph.app/reminder/internal/queue"
	"basegraph.app/reminder/internal/reminder"
	"basegraph.app/reminder/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "reminder bot starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	deadLetters, err := newDeadLetterProducer(ctx, cfg.DeadLetter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up dead-letter stream", "error", err)
		os.Exit(1)
	}
	defer deadLetters.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	connector := botframework.NewConnectorClient(cfg.Bot, httpClient)

	var auth botframework.Authenticator
	if cfg.Bot.Enabled() {
		jwtAuth := botframework.NewJWTAuthenticator(cfg.Bot, httpClient)
		defer jwtAuth.Close()
		auth = jwtAuth
		slog.InfoContext(ctx, "bot framework authentication enabled", "app_id", cfg.Bot.AppID)
	} else {
		slog.WarnContext(ctx, "BOT_ID not set, accepting unauthenticated activities (emulator mode)")
	}

	adapter := botframework.NewAdapter(connector, auth, botframework.WithTurnErrorHandler(bot.OnTurnError))
	refs := store.NewConversationReferences()
	scheduler := reminder.NewScheduler(adapter, deadLetters, cfg.Reminder)
	reminderBot := bot.New(refs, reminder.NewClient(cfg.Reminder.BaseURL, httpClient))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.RouterConfig{
		Adapter:   adapter,
		Bot:       reminderBot,
		Refs:      refs,
		Scheduler: scheduler,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Reminders still waiting when the deadline passes are lost.
	if err := scheduler.Wait(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "pending reminders dropped at shutdown", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newDeadLetterProducer(ctx context.Context, cfg config.DeadLetterConfig) (queue.DeadLetterProducer, error) {
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "REDIS_URL not set, failed reminders are only logged")
		return queue.NewLogDeadLetters(slog.Default()), nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Stream)

	return queue.NewRedisDeadLetters(redisClient, cfg.Stream, slog.Default()), nil
}

func setupRouter(cfg config.Config, routes httprouter.RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, routes)

	return router
}

const banner = `
██████╗ ███████╗███╗   ███╗██╗███╗   ██╗██████╗ ███████╗██████╗ 
██╔══██╗██╔════╝████╗ ████║██║████╗  ██║██╔══██╗██╔════╝██╔══██╗
██████╔╝█████╗  ██╔████╔██║██║██╔██╗ ██║██║  ██║█████╗  ██████╔╝
██╔══██╗██╔══╝  ██║╚██╔╝██║██║██║╚██╗██║██║  ██║██╔══╝  ██╔══██╗
██║  ██║███████╗██║ ╚═╝ ██║██║██║ ╚████║██████╔╝███████╗██║  ██║
╚═╝  ╚═╝╚══════╝╚═╝     ╚═╝╚═╝╚═╝  ╚═══╝╚═════╝ ╚══════╝╚═╝  ╚═╝
`
