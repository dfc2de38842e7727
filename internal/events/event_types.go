package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketProvisioned        EventType = "ticket_provisioned"
	EventTicketProvisioningFailed EventType = "ticket_provisioning_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketProvisionedPayload payload.
type TicketProvisionedPayload struct {
	GuildID    string `json:"guild_id"`
	ChannelID  string `json:"channel_id"`
	ChannelURL string `json:"channel_url"`
	Pseudo     string `json:"pseudo"`
	Subject    string `json:"subject"`
}

// TicketProvisioningFailedPayload payload.
type TicketProvisioningFailedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
