package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mns-opti/ticket-bridge/internal/api/dto"
)

// ReadinessGate reports whether the chat-platform connection is usable.
type ReadinessGate interface {
	Ready() bool
}

// HealthHandler responds to the probes the public site polls.
type HealthHandler struct {
	serviceName string
	version     string
	gate        ReadinessGate
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, gate ReadinessGate) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, gate: gate}
}

// Root GET / answers a bare liveness check.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Status GET /status reports process liveness and bot readiness.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(dto.StatusResponse{
		Online:   true,
		BotReady: h.gate.Ready(),
	})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports readiness: the gateway session must be established.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.gate.Ready() {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"status": "not_ready",
		"reason": "discord gateway not connected",
	})
}
