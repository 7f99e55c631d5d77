package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	version string
	checks  []ReadinessCheck
	logger  *slog.Logger
}

func NewHealthHandler(version string, logger *slog.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
		logger:  logger,
	}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready runs every readiness check and answers 503 when one fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", check.Name, "error", err)
			results[check.Name] = "unavailable"
			ready = false
			continue
		}
		results[check.Name] = "ok"
	}

	if !ready {
		return c.Status(domain.ErrProviderUnavailable.StatusCode).JSON(HealthResponse{
			Status: "not_ready",
			Checks: results,
		})
	}

	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: results,
	})
}
