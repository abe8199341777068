package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrNoItemsResolved     = errors.New("no order items could be resolved from checkout session")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrUpstreamFailure     = errors.New("payment provider request failed")
	ErrInvalidCheckout     = errors.New("invalid checkout request")
	ErrInvalidOrder        = errors.New("invalid order")
)

var (
	// ErrForbidden is an authenticated caller acting on something it does not own.
	ErrForbidden = fmt.Errorf("%w: caller does not own this resource", ErrUnauthorized)
	// ErrInvalidSignature is a webhook payload that failed verification.
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUpstreamFailure)
)

func upstream(err error) error {
	if errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
}
