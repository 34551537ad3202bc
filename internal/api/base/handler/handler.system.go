package basehdl

import (
	"context"
	"time"

	"cdr_api/internal/common"

	"github.com/gofiber/fiber/v3"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the health endpoint.
type SystemHandler struct {
	store Pinger
}

func NewSystemHandler(store Pinger) *SystemHandler {
	return &SystemHandler{store: store}
}

// HandleHealth pings the store and answers 200, or 503 when it is unreachable.
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	services := fiber.Map{"api": "ok"}
	healthData := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	}

	if h.store == nil {
		healthData["status"] = "degraded"
		services["store"] = "not_initialized"
	} else if err := h.store.Ping(ctx); err != nil {
		healthData["status"] = "degraded"
		services["store"] = "error"
		healthData["store_error"] = err.Error()
		return JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
			"code":    common.StatusServiceUnavailable,
			"message": "Storage is unavailable",
			"data":    healthData,
			"status":  StatusError,
		})
	} else {
		services["store"] = "ok"
	}

	return JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    healthData,
		"status":  StatusSuccess,
	})
}
