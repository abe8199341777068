package main

import (
	"net/http"

	"RestaurantAPI/internal/middleware"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type verifySessionRequest struct {
	SessionID string `json:"session_id"`
}

func registerCheckoutRoutes(g *echo.Group, cs *services.CheckoutService, rs *services.ReconciliationService) {
	p := g.Group("/checkout")
	p.Use(middleware.JWTMiddleware())

	// create-checkout-session
	p.POST("/session", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		req := new(model.CheckoutRequest)
		if err := c.Bind(req); err != nil {
			return badRequest(c, "invalid request")
		}
		resp, err := cs.CreateCheckoutSession(c.Request().Context(), cl.UserID, *req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, resp)
	})

	// verify-session, called from the payment success page
	p.POST("/verify", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		req := new(verifySessionRequest)
		if err := c.Bind(req); err != nil || req.SessionID == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":      "session_id is required",
				"code":       "invalid_request",
				"orders_url": ordersURL,
			})
		}
		orderID, err := rs.VerifySessionFor(c.Request().Context(), cl.UserID, req.SessionID)
		if err != nil {
			return respondVerifyError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"order_id": orderID})
	})
}
