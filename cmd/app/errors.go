package main

import (
	"errors"
	"net/http"

	"RestaurantAPI/internal/model"
	"RestaurantAPI/internal/services"

	"github.com/labstack/echo/v4"
)

const ordersURL = "/orders"

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return http.StatusPaymentRequired, "payment_not_completed"
	case errors.Is(err, services.ErrNoItemsResolved):
		return http.StatusUnprocessableEntity, "no_items_resolved"
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid_signature"
	case errors.Is(err, services.ErrUpstreamFailure):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, services.ErrInvalidCheckout),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, model.ErrUnknownStatus):
		return http.StatusBadRequest, "invalid_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		msg = "internal server error"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// respondVerifyError points the client at the order list, where a
// webhook-created order may already be waiting.
func respondVerifyError(c echo.Context, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("verify session: %v", err)
		msg = "internal server error"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code, "orders_url": ordersURL})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}
