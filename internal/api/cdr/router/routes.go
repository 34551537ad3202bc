// Package router registers the /api/Cdr routes.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	cdrhdl "cdr_api/internal/api/cdr/handler"
	apirouter "cdr_api/internal/api/router"
	"cdr_api/internal/global"
)

// Register registers the CDR routes using the service and validator in global.
func Register(api fiber.Router, r *apirouter.Router) error {
	if global.CdrService == nil {
		return fmt.Errorf("create CDR handler: service is not initialised")
	}
	RegisterHandler(api, cdrhdl.NewCdrHandler(global.CdrService, global.Validate))
	return nil
}

// RegisterHandler registers h. Static paths come before /:reference.
func RegisterHandler(api fiber.Router, h *cdrhdl.CdrHandler) {
	const prefix = "/Cdr"
	apirouter.RegisterRouteWithMiddleware(api, prefix, fiber.MethodPost, "/Upload", nil, h.HandleUpload)
	apirouter.RegisterRouteWithMiddleware(api, prefix, fiber.MethodGet, "/Estatistics", nil, h.HandleStatistics)
	apirouter.RegisterRouteWithMiddleware(api, prefix, fiber.MethodGet, "/ByCallerId", nil, h.HandleByCaller)
	apirouter.RegisterRouteWithMiddleware(api, prefix, fiber.MethodGet, "/MostExpensiveCalls", nil, h.HandleMostExpensive)
	apirouter.RegisterRouteWithMiddleware(api, prefix, fiber.MethodGet, "/:reference", nil, h.HandleGetByReference)
}
