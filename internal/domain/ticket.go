package domain

import (
	"crypto/rand"
	"strings"
)

// TicketRequest is a support request as submitted from the public site. It
// lives for the duration of one HTTP call; nothing is persisted.
type TicketRequest struct {
	Pseudo  string
	Contact string
	Subject string
	Details string
}

// Ticket describes a provisioned ticket channel.
type Ticket struct {
	ID         string
	ChannelID  string
	ChannelURL string
}

const (
	// TicketIDPrefix is carried by every generated ticket id.
	TicketIDPrefix = "MNS-"

	ticketIDLength = 8
	idCharset      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	channelNamePrefix  = "ticket-"
	maxSafePseudoLen   = 16
	maxChannelNameLen  = 95
	fallbackSafePseudo = "user"
)

// NewTicketID produces a short shareable id matching MNS-[A-Z0-9]{8}.
// Uniqueness is probabilistic; ids are not checked against existing channels.
func NewTicketID() string {
	buf := make([]byte, ticketIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	var b strings.Builder
	b.WriteString(TicketIDPrefix)
	for _, c := range buf {
		b.WriteByte(idCharset[int(c)%len(idCharset)])
	}
	return b.String()
}

// SanitizePseudo lowers the pseudo, strips everything outside [a-z0-9-_] and
// caps it at 16 characters. An empty result falls back to "user".
func SanitizePseudo(pseudo string) string {
	lowered := strings.ToLower(pseudo)
	var b strings.Builder
	for _, r := range lowered {
		if b.Len() >= maxSafePseudoLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteByte(byte(r))
		}
	}
	if b.Len() == 0 {
		return fallbackSafePseudo
	}
	return b.String()
}

// ChannelName derives the channel name for a ticket, bounded to the
// platform's 95-character channel-name limit.
func ChannelName(pseudo, ticketID string) string {
	name := channelNamePrefix + SanitizePseudo(pseudo) + "-" + strings.ToLower(ticketID)
	if len(name) > maxChannelNameLen {
		name = name[:maxChannelNameLen]
	}
	return name
}
