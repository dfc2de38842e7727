package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
	"github.com/mns-opti/ticket-bridge/internal/domain"
	"github.com/mns-opti/ticket-bridge/internal/events"
	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

// ChatPlatform is the slice of the Discord client the ticket flow needs.
// internal/discord.Session implements it; tests substitute a fake.
type ChatPlatform interface {
	Ready() bool
	BotUserID() string
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	BotPermissions(ctx context.Context, guildID string) (int64, error)
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

// TicketService orchestrates ticket-channel provisioning: readiness gate,
// precondition validation, id/name generation, channel creation, staff
// notification. Each step gates the next; the first failure wins.
type TicketService struct {
	platform   ChatPlatform
	cfg        config.TicketsConfig
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTicketService creates the service.
func NewTicketService(platform ChatPlatform, cfg config.TicketsConfig, dispatcher events.Dispatcher, logger *zap.Logger) *TicketService {
	return &TicketService{
		platform:   platform,
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateTicket runs the full provisioning chain for one validated request.
func (s *TicketService) CreateTicket(ctx context.Context, req domain.TicketRequest) (*domain.Ticket, error) {
	ticket, err := s.createTicket(ctx, req)
	if err != nil {
		s.publishFailure(ctx, err)
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) createTicket(ctx context.Context, req domain.TicketRequest) (*domain.Ticket, error) {
	if !s.platform.Ready() {
		return nil, apperrors.NewBotNotReady()
	}

	if err := s.validatePreconditions(ctx); err != nil {
		return nil, err
	}

	ticketID := domain.NewTicketID()
	channelName := domain.ChannelName(req.Pseudo, ticketID)

	channel, err := s.provisionChannel(ctx, ticketID, channelName, req)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:         ticketID,
		ChannelID:  channel.ID,
		ChannelURL: fmt.Sprintf("https://discord.com/channels/%s/%s", s.cfg.GuildID, channel.ID),
	}

	s.logger.Info("ticket provisioned",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel", channelName))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketProvisioned,
			TicketID:  ticket.ID,
			Timestamp: time.Now().UTC(),
			Payload: events.TicketProvisionedPayload{
				GuildID:    s.cfg.GuildID,
				ChannelID:  ticket.ChannelID,
				ChannelURL: ticket.ChannelURL,
				Pseudo:     req.Pseudo,
				Subject:    req.Subject,
			},
		})
	}

	return ticket, nil
}

func (s *TicketService) publishFailure(ctx context.Context, cause error) {
	if s.dispatcher == nil {
		return
	}
	domainErr := apperrors.ToDomainError(cause)
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketProvisioningFailed,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketProvisioningFailedPayload{
			Code:   domainErr.Code,
			Reason: domainErr.Message,
		},
	})
}
