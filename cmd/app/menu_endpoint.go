package main

import (
	"net/http"
	"strconv"

	"RestaurantAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerMenuRoutes(g *echo.Group, ms *services.MenuService) {
	p := g.Group("/menu")

	p.GET("", func(c echo.Context) error {
		items, err := ms.List(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, items)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return badRequest(c, "invalid menu item id")
		}
		item, err := ms.GetByID(c.Request().Context(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, item)
	})
}
