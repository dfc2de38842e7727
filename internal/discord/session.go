package discord

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
)

// Session wraps a discordgo gateway session. Readiness is tracked from
// gateway lifecycle events and only ever read by the request path.
type Session struct {
	s      *discordgo.Session
	logger *zap.Logger
	ready  atomic.Bool
	botID  atomic.Value // string
}

// Connect builds a session, registers lifecycle handlers and opens the
// gateway connection. The returned Session is usable immediately; Ready
// flips to true once the gateway handshake completes.
func Connect(cfg config.DiscordConfig, logger *zap.Logger) (*Session, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	sess := &Session{s: dg, logger: logger}
	sess.botID.Store("")

	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		sess.botID.Store(r.User.ID)
		sess.ready.Store(true)
		logger.Info("bot connected",
			zap.String("user", r.User.Username),
			zap.String("id", r.User.ID))
	})
	dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		sess.ready.Store(true)
		logger.Info("gateway session resumed")
	})
	dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		sess.ready.Store(false)
		logger.Warn("gateway disconnected")
	})

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("open discord gateway: %w", err)
	}
	return sess, nil
}

// Close shuts the gateway connection down.
func (s *Session) Close() {
	s.ready.Store(false)
	if err := s.s.Close(); err != nil {
		s.logger.Warn("closing discord session", zap.Error(err))
	}
}

// Ready reports whether the gateway session is currently established.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

// BotUserID returns the service account's user id, empty before first Ready.
func (s *Session) BotUserID() string {
	id, _ := s.botID.Load().(string)
	return id
}

// Guild fetches a guild by id.
func (s *Session) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	return s.s.Guild(guildID, discordgo.WithContext(ctx))
}

// Channel fetches a channel by id.
func (s *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return s.s.Channel(channelID, discordgo.WithContext(ctx))
}

// BotPermissions resolves the bot's effective guild-level permission set:
// the guild owner and Administrator short-circuit to all permissions,
// otherwise the @everyone bitmask OR'd with each of the member's roles.
func (s *Session) BotPermissions(ctx context.Context, guildID string) (int64, error) {
	botID := s.BotUserID()
	if botID == "" {
		return 0, errors.New("bot user id not known yet")
	}

	guild, err := s.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("fetch guild: %w", err)
	}
	if guild.OwnerID == botID {
		return discordgo.PermissionAll, nil
	}

	member, err := s.s.GuildMember(guildID, botID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("fetch bot member: %w", err)
	}

	rolePerms := make(map[string]int64, len(guild.Roles))
	var perms int64
	for _, role := range guild.Roles {
		rolePerms[role.ID] = role.Permissions
		// @everyone role id equals the guild id
		if role.ID == guildID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		perms |= rolePerms[roleID]
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, nil
	}
	return perms, nil
}

// CreateChannel creates a guild channel from the given data.
func (s *Session) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return s.s.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
}

// SendMessage posts a message into a channel.
func (s *Session) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return s.s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}
