package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/domain"
	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

// Field-size caps imposed by the platform's embed limits.
const (
	maxFieldPseudoLen  = 100
	maxFieldContactLen = 100
	maxFieldSubjectLen = 256
	maxFieldDetailsLen = 1024
)

const contactPlaceholder = "—"

// provisionChannel creates the private ticket channel with its complete
// permission-overwrite set and posts the staff notification. A failure after
// channel creation leaves the channel in place; there is no rollback.
func (s *TicketService) provisionChannel(ctx context.Context, ticketID, channelName string, req domain.TicketRequest) (*discordgo.Channel, error) {
	contact := req.Contact
	if contact == "" {
		contact = contactPlaceholder
	}

	topic := fmt.Sprintf("Ticket %s • Pseudo: %s • Contact: %s • Sujet: %s",
		ticketID, req.Pseudo, contact, req.Subject)

	channel, err := s.platform.CreateChannel(ctx, s.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channelName,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		ParentID:             s.cfg.CategoryID,
		PermissionOverwrites: s.buildOverwrites(),
	})
	if err != nil {
		s.logger.Error("channel creation failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewServerError(err)
	}

	if _, err := s.platform.SendMessage(ctx, channel.ID, s.buildNotification(ticketID, req, contact)); err != nil {
		s.logger.Error("notification send failed",
			zap.String("ticket_id", ticketID),
			zap.String("channel_id", channel.ID),
			zap.Error(err))
		return nil, apperrors.NewServerError(err)
	}

	return channel, nil
}

// buildOverwrites assembles the full access-rule set applied atomically at
// channel creation: @everyone hidden, staff roles granted conversation
// access, the bot itself granted conversation plus channel management.
func (s *TicketService) buildOverwrites() []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares the guild's id
			ID:   s.cfg.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}

	staffAllow := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks)
	for _, roleID := range s.cfg.StaffRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: staffAllow,
		})
	}

	if botID := s.platform.BotUserID(); botID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   botID,
			Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel |
				discordgo.PermissionSendMessages |
				discordgo.PermissionReadMessageHistory |
				discordgo.PermissionManageChannels,
		})
	}

	return overwrites
}

// buildNotification composes the one message posted into the new channel:
// a mention of every staff role and an embed summarizing the request.
func (s *TicketService) buildNotification(ticketID string, req domain.TicketRequest, contact string) *discordgo.MessageSend {
	mentions := make([]string, 0, len(s.cfg.StaffRoleIDs))
	for _, roleID := range s.cfg.StaffRoleIDs {
		mentions = append(mentions, "<@&"+roleID+">")
	}

	embed := &discordgo.MessageEmbed{
		Title: "Nouveau ticket • " + ticketID,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Pseudo", Value: truncate(req.Pseudo, maxFieldPseudoLen), Inline: true},
			{Name: "Contact", Value: truncate(contact, maxFieldContactLen), Inline: true},
			{Name: "Sujet", Value: truncate(req.Subject, maxFieldSubjectLen)},
			{Name: "Détails", Value: truncate(req.Details, maxFieldDetailsLen)},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: s.cfg.EmbedFooter},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return &discordgo.MessageSend{
		Content: strings.Join(mentions, " ") + " Ticket créé",
		Embeds:  []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: s.cfg.StaffRoleIDs,
		},
	}
}

// truncate caps val at max bytes without splitting a multi-byte rune at the
// boundary, so truncated French text stays valid UTF-8.
func truncate(val string, max int) string {
	if len(val) <= max {
		return val
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(val[cut]) {
		cut--
	}
	return val[:cut]
}
