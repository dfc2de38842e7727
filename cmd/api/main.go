package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/mns-opti/ticket-bridge/internal/api/http"
	"github.com/mns-opti/ticket-bridge/internal/api/http/handlers"
	"github.com/mns-opti/ticket-bridge/internal/config"
	"github.com/mns-opti/ticket-bridge/internal/discord"
	"github.com/mns-opti/ticket-bridge/internal/events"
	"github.com/mns-opti/ticket-bridge/internal/observability"
	"github.com/mns-opti/ticket-bridge/internal/ratelimit"
	"github.com/mns-opti/ticket-bridge/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if missing := cfg.Tickets.Missing(); len(missing) > 0 {
		logger.Warn("ticket configuration incomplete, provisioning will fail until fixed",
			zap.Strings("missing", missing))
	}

	bot, err := discord.Connect(cfg.Discord, logger)
	if err != nil {
		logger.Fatal("failed to connect to discord", zap.Error(err))
	}
	defer bot.Close()

	limiterStore := ratelimit.NewStorage(cfg.Redis, logger)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	dispatcher.Subscribe(events.EventTicketProvisioned, func(context.Context, events.Event) error {
		metrics.RecordTicketProvisioned()
		return nil
	})
	dispatcher.Subscribe(events.EventTicketProvisioningFailed, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketProvisioningFailedPayload); ok {
			metrics.RecordTicketFailed(payload.Code)
		}
		return nil
	})

	ticketService := service.NewTicketService(bot, cfg.Tickets, dispatcher, logger)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.HTTP.BodyLimitBytes,
	})

	var store fiber.Storage
	if limiterStore != nil {
		store = limiterStore
		defer limiterStore.Close() //nolint:errcheck
	}
	httptransport.RegisterMiddlewares(app, cfg.HTTP, cfg.App.RequestTimeout(), store, logger, metrics)

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, bot)
	ticketsHandler := handlers.NewTicketsHandler(ticketService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Tickets: ticketsHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
