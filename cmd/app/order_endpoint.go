package main

import (
	"net/http"

	"RestaurantAPI/internal/middleware"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type statusRequest struct {
	Status string `json:"status"`
}

func parseOrderID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func registerOrderRoutes(g *echo.Group, svc *services.OrderService) {
	p := g.Group("/orders")
	p.Use(middleware.JWTMiddleware())

	p.GET("", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		orders, err := svc.ListForUser(c.Request().Context(), cl.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, orders)
	})

	p.GET("/:id", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		id, ok := parseOrderID(c)
		if !ok {
			return badRequest(c, "invalid order id")
		}
		o, err := svc.GetForUser(c.Request().Context(), cl.UserID, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	})

	// customers may only cancel their own PENDING orders
	p.PATCH("/:id/status", func(c echo.Context) error {
		cl := middleware.GetClaims(c)
		id, ok := parseOrderID(c)
		if !ok {
			return badRequest(c, "invalid order id")
		}
		req := new(statusRequest)
		if err := c.Bind(req); err != nil {
			return badRequest(c, "invalid request")
		}
		status, err := model.ParseOrderStatus(req.Status)
		if err != nil {
			return respondError(c, err)
		}
		o, err := svc.CustomerSetStatus(c.Request().Context(), cl.UserID, id, status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	})
}
