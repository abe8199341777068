package main

import (
	"net/http"
	"strconv"
	"time"

	"RestaurantAPI/internal/middleware"
	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

type adminCreateOrderRequest struct {
	UserID int64 `json:"user_id"`
	services.CreatePendingInput
}

type reconcileRequest struct {
	SessionID string `json:"session_id"`
}

// orderFilterFromQuery reads status, from, to (inclusive days), q, limit and offset.
func orderFilterFromQuery(c echo.Context) (model.OrderFilter, error) {
	var f model.OrderFilter
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseOrderStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if s := c.QueryParam("from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, err
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}
	f.Search = c.QueryParam("q")
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, err
		}
		f.Limit = n
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return f, err
		}
		f.Offset = n
	}
	return f, nil
}

func registerAdminOrderRoutes(g *echo.Group, svc *services.OrderService, rs *services.ReconciliationService) {
	p := g.Group("/admin/orders")
	p.Use(middleware.JWTMiddleware())
	p.Use(middleware.AdminOnly)

	p.GET("", func(c echo.Context) error {
		f, err := orderFilterFromQuery(c)
		if err != nil {
			return badRequest(c, "invalid filter: "+err.Error())
		}
		orders, err := svc.ListAll(c.Request().Context(), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, orders)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, ok := parseOrderID(c)
		if !ok {
			return badRequest(c, "invalid order id")
		}
		o, err := svc.Get(c.Request().Context(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	})

	// direct PENDING order, e.g. taken over the phone
	p.POST("", func(c echo.Context) error {
		req := new(adminCreateOrderRequest)
		if err := c.Bind(req); err != nil || req.UserID <= 0 {
			return badRequest(c, "invalid request")
		}
		o, err := svc.CreatePending(c.Request().Context(), req.UserID, req.CreatePendingInput)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, o)
	})

	setStatus := func(c echo.Context) error {
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
		var o *model.Order
		if guarded, _ := strconv.ParseBool(c.QueryParam("guarded")); guarded {
			o, err = svc.AdminAdvance(c.Request().Context(), id, status)
		} else {
			o, err = svc.AdminSetStatus(c.Request().Context(), id, status)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	}
	p.PUT("/:id/status", setStatus)
	p.PATCH("/:id/status", setStatus)

	p.POST("/:id/cancel", func(c echo.Context) error {
		id, ok := parseOrderID(c)
		if !ok {
			return badRequest(c, "invalid order id")
		}
		o, err := svc.AdminCancel(c.Request().Context(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, o)
	})

	p.POST("/reconcile", func(c echo.Context) error {
		req := new(reconcileRequest)
		if err := c.Bind(req); err != nil || req.SessionID == "" {
			return badRequest(c, "session_id is required")
		}
		o, err := rs.Reconcile(c.Request().Context(), req.SessionID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"order_id": o.ID, "status": o.Status})
	})
}
