package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mns-opti/ticket-bridge/internal/api/dto"
	"github.com/mns-opti/ticket-bridge/internal/domain"
	"github.com/mns-opti/ticket-bridge/internal/service"
	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

// TicketsHandler exposes the public ticket-creation endpoint.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/ticket. Input validation happens here, before any
// platform call; everything past it is the service's sequential chain.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMissingFields()
	}

	pseudo := strings.TrimSpace(req.Pseudo)
	subject := strings.TrimSpace(req.Subject)
	details := strings.TrimSpace(req.Details)
	if pseudo == "" || subject == "" || details == "" {
		return apperrors.NewMissingFields()
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), domain.TicketRequest{
		Pseudo:  pseudo,
		Contact: strings.TrimSpace(req.Contact),
		Subject: subject,
		Details: details,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.CreateTicketResponse{
		OK:         true,
		ID:         ticket.ID,
		ChannelURL: ticket.ChannelURL,
	})
}
