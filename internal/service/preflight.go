package service

import (
	"context"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

// requiredPermissions lists the guild-level permissions the bot must hold
// before any provisioning attempt. Names follow the platform's permission
// flags so operators can map them straight to the role settings UI.
var requiredPermissions = []struct {
	Name string
	Bit  int64
}{
	{"ViewChannel", discordgo.PermissionViewChannel},
	{"ManageChannels", discordgo.PermissionManageChannels},
	{"SendMessages", discordgo.PermissionSendMessages},
	{"ReadMessageHistory", discordgo.PermissionReadMessageHistory},
}

// validatePreconditions runs the sequential precondition checks: complete
// configuration, resolvable guild, resolvable category of the right kind,
// sufficient bot permissions. It stops at the first failure so each
// distinct misconfiguration surfaces as its own error code.
func (s *TicketService) validatePreconditions(ctx context.Context) error {
	if missing := s.cfg.Missing(); len(missing) > 0 {
		return apperrors.NewMissingConfig(missing)
	}

	if _, err := s.platform.Guild(ctx, s.cfg.GuildID); err != nil {
		return apperrors.NewBadGuildID(err)
	}

	category, err := s.platform.Channel(ctx, s.cfg.CategoryID)
	if err != nil {
		return apperrors.NewBadCategoryID(err)
	}
	if category.Type != discordgo.ChannelTypeGuildCategory {
		return apperrors.NewNotACategory()
	}

	perms, err := s.platform.BotPermissions(ctx, s.cfg.GuildID)
	if err != nil {
		return apperrors.NewServerError(err)
	}
	var missing []string
	for _, p := range requiredPermissions {
		if perms&p.Bit == 0 {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewMissingBotPerms(missing)
	}

	return nil
}
