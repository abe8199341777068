package main

import (
	"io"
	"net/http"

	"RestaurantAPI/internal/config"
	"RestaurantAPI/internal/services"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 64 << 10

func registerPaymentRoutes(g *echo.Group, rs *services.ReconciliationService, provider string) {
	p := g.Group("/payments")

	// ============================
	// PROVIDER WEBHOOK
	// (NO JWT, verified by signature)
	// ============================
	p.POST("/webhook", func(c echo.Context) error {
		payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
		if err != nil {
			return badRequest(c, "unreadable payload")
		}
		// a truncated body would fail signature checks and look forged
		if len(payload) > maxWebhookBody {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
				"error": "payload exceeds 64KiB",
				"code":  "payload_too_large",
			})
		}

		signature := ""
		if provider == config.ProviderStripe {
			signature = c.Request().Header.Get("Stripe-Signature")
		}

		// Anything but a bad signature is acknowledged so the provider stops retrying.
		if err := rs.HandleNotification(c.Request().Context(), payload, signature); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}
