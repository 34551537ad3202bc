// Package router wires domain routes onto the Fiber app.
package router

import (
	"github.com/gofiber/fiber/v3"
)

// RoutePrefix holds the base prefixes of the API.
type RoutePrefix struct {
	Base string // /api
}

func NewRoutePrefix() RoutePrefix {
	return RoutePrefix{Base: "/api"}
}

// Router carries what domain registrations share.
type Router struct {
	app *fiber.App
}

func NewRouter(app *fiber.App) *Router {
	return &Router{app: app}
}

// App returns the application the routes are registered on.
func (r *Router) App() *fiber.App {
	return r.app
}

// RegisterRouteWithMiddleware registers one route inside a group for prefix.
// Middlewares are attached with Use on the group so they run for that route.
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case fiber.MethodGet:
		routeGroup.Get(path, handler)
	case fiber.MethodPost:
		routeGroup.Post(path, handler)
	case fiber.MethodPut:
		routeGroup.Put(path, handler)
	case fiber.MethodDelete:
		routeGroup.Delete(path, handler)
	}
}

// RegisterFunc registers one domain's routes under the /api group.
type RegisterFunc func(api fiber.Router, r *Router) error

// SetupRoutes runs each domain registration in order.
func SetupRoutes(app *fiber.App, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	api := app.Group(prefix.Base)
	r := NewRouter(app)
	for _, reg := range regs {
		if err := reg(api, r); err != nil {
			return err
		}
	}
	return nil
}
