package dto

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Pseudo  string `json:"pseudo"`
	Contact string `json:"contact"`
	Subject string `json:"subject"`
	Details string `json:"details"`
}

// CreateTicketResponse is the success shape for ticket creation.
type CreateTicketResponse struct {
	OK         bool   `json:"ok"`
	ID         string `json:"id"`
	ChannelURL string `json:"channelUrl"`
}

// StatusResponse mirrors the public status probe consumed by the website.
type StatusResponse struct {
	Online   bool `json:"online"`
	BotReady bool `json:"botReady"`
}
