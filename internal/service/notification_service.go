package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
	"github.com/mns-opti/ticket-bridge/internal/events"
)

// NotificationService forwards ticket events to operator-facing channels:
// structured logs always, an optional webhook when configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketProvisioned, n.handleTicketProvisioned)
	n.dispatcher.Subscribe(events.EventTicketProvisioningFailed, n.handleTicketFailed)
}

func (n *NotificationService) handleTicketProvisioned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketProvisioned",
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.postWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("TicketProvisioningFailed",
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.postWebhook(ctx, event)
	return nil
}

// postWebhook delivers the event to the configured webhook, best effort.
func (n *NotificationService) postWebhook(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("webhook payload marshal failed", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.Error(err))
		return
	}
	_ = resp.Body.Close()
}
