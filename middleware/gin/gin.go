// Package gin mounts the checkout API on a Gin router.
package gin

import (
	gongin "github.com/gin-gonic/gin"

	"github.com/cmorrow/formpay/pkg/api"
)

// Config holds route mounting configuration.
type Config struct {
	// Handler is the checkout API handler (required).
	Handler *api.Handler

	// PathPrefix is prepended to the checkout routes, e.g. "/v1".
	PathPrefix string

	// Middleware is applied to the checkout routes only.
	Middleware []gongin.HandlerFunc
}

// RegisterRoutes mounts the checkout endpoints on r.
func RegisterRoutes(r *gongin.Engine, cfg Config) {
	if cfg.Handler == nil {
		panic("formpay/gin: Config.Handler is required")
	}

	group := r.Group(cfg.PathPrefix, cfg.Middleware...)
	group.POST("/checkout", gongin.WrapF(cfg.Handler.StartCheckout))
	group.POST("/checkout/resume", gongin.WrapF(cfg.Handler.ResumeCheckout))
	group.POST("/webhooks/stripe", gongin.WrapF(cfg.Handler.HandleWebhook))
}
