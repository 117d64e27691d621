// Package fiber mounts the checkout API on a Fiber app. Fiber does not
// speak net/http, so the endpoints are implemented natively on its
// context instead of wrapping the stdlib handler.
package fiber

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cmorrow/formpay/pkg/api"
	"github.com/cmorrow/formpay/pkg/checkout"
	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// Config holds route mounting configuration.
type Config struct {
	// Service executes checkout operations (required).
	Service api.CheckoutService

	// PathPrefix is prepended to the checkout routes, e.g. "/v1".
	PathPrefix string
}

type router struct {
	service  api.CheckoutService
	validate *validator.Validate
}

// RegisterRoutes mounts the checkout endpoints on app.
func RegisterRoutes(app *fiber.App, cfg Config) {
	if cfg.Service == nil {
		panic("formpay/fiber: Config.Service is required")
	}

	rt := &router{
		service:  cfg.Service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	group := app.Group(cfg.PathPrefix)
	group.Post("/checkout", rt.startCheckout)
	group.Post("/checkout/resume", rt.resumeCheckout)
	group.Post("/webhooks/stripe", rt.handleWebhook)
}

func (rt *router) startCheckout(c *fiber.Ctx) error {
	var req api.StartCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json", "request body is not valid JSON")
	}
	if err := rt.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "request failed validation")
	}

	result, err := rt.service.StartCheckout(c.UserContext(), req.FormID, req.FeedID, checkout.Order{
		Total:         req.Total,
		Currency:      req.Currency,
		Description:   req.Description,
		Email:         req.Email,
		Name:          req.Name,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(api.StartCheckoutResponse{
		ClientSecret:      result.ClientSecret,
		InvoiceID:         result.InvoiceID,
		ContinuationToken: result.ContinuationToken,
		ResumeToken:       result.ResumeToken,
		Total:             result.Total,
		TransactionID:     result.TransactionID,
		SubscriptionID:    result.SubscriptionID,
		CustomerID:        result.CustomerID,
	})
}

func (rt *router) resumeCheckout(c *fiber.Ctx) error {
	var req api.ResumeCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json", "request body is not valid JSON")
	}
	if err := rt.validate.Struct(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "request failed validation")
	}

	result, err := rt.service.ResumeCheckout(c.UserContext(), req.ResumeToken, checkout.RedirectParams{
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(api.ResumeCheckoutResponse{
		EntryID:        result.EntryID,
		Amount:         result.Amount,
		Currency:       result.Currency,
		PaymentStatus:  result.PaymentStatus,
		TransactionID:  result.TransactionID,
		SubscriptionID: result.SubscriptionID,
		InvoiceID:      result.InvoiceID,
	})
}

func (rt *router) handleWebhook(c *fiber.Ctx) error {
	// Body() returns the raw bytes, which signature verification needs
	// untouched.
	action, err := rt.service.HandleWebhookEvent(c.UserContext(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(api.WebhookResponse{
		EventID:   action.EventID,
		EventType: action.EventType,
		Handled:   action.Kind != checkout.ActionIgnored,
		Duplicate: action.Duplicate,
	})
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, checkout.ErrDraftNotFound):
		return writeError(c, fiber.StatusNotFound, "draft_not_found", "no pending checkout for this token")
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return writeError(c, fiber.StatusPaymentRequired, "payment_declined", "the payment method was declined")
	case errors.Is(err, checkout.ErrCouponInvalid):
		return writeError(c, fiber.StatusUnprocessableEntity, "coupon_invalid", "the coupon code is not valid")
	case errors.Is(err, checkout.ErrTotalMismatch):
		return writeError(c, fiber.StatusConflict, "total_mismatch", "the charged amount does not match the order")
	case errors.Is(err, checkout.ErrInvalidRedirectState):
		return writeError(c, fiber.StatusConflict, "invalid_state", "the checkout cannot be completed from this state")
	case errors.Is(err, stripeapi.ErrSignatureMismatch),
		errors.Is(err, stripeapi.ErrStaleTimestamp),
		errors.Is(err, stripeapi.ErrMalformedHeader),
		errors.Is(err, stripeapi.ErrMalformedPayload):
		return writeError(c, fiber.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case errors.Is(err, stripeapi.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "not_found", "a referenced processor object does not exist")
	default:
		var apiErr *stripeapi.APIError
		if errors.As(err, &apiErr) {
			return writeError(c, fiber.StatusBadGateway, "processor_error", "the payment processor rejected the request")
		}
		return writeError(c, fiber.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(api.ErrorResponse{Code: code, Message: message})
}
