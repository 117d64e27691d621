// Package echo mounts the checkout API on an Echo router.
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cmorrow/formpay/pkg/api"
)

// Config holds route mounting configuration.
type Config struct {
	// Handler is the checkout API handler (required).
	Handler *api.Handler

	// PathPrefix is prepended to the checkout routes, e.g. "/v1".
	PathPrefix string

	// Middleware is applied to the checkout routes only.
	Middleware []echo.MiddlewareFunc
}

// RegisterRoutes mounts the checkout endpoints on e.
func RegisterRoutes(e *echo.Echo, cfg Config) {
	if cfg.Handler == nil {
		panic("formpay/echo: Config.Handler is required")
	}

	group := e.Group(cfg.PathPrefix, cfg.Middleware...)
	group.POST("/checkout", wrap(cfg.Handler.StartCheckout))
	group.POST("/checkout/resume", wrap(cfg.Handler.ResumeCheckout))
	group.POST("/webhooks/stripe", wrap(cfg.Handler.HandleWebhook))
}

func wrap(handler http.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		handler(c.Response(), c.Request())
		return nil
	}
}
