package model

import (
	"errors"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var ErrUnknownStatus = errors.New("unknown order status")

// AllOrderStatuses lists every recognized status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// forward lists the single non-cancel successor of each non-terminal status.
var forward = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusConfirmed,
	OrderStatusConfirmed:      OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusReady,
	OrderStatusReady:          OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

// ParseOrderStatus accepts any casing and surrounding whitespace.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrUnknownStatus
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransition reports whether the lifecycle table allows from -> to.
// CANCELLED is reachable from every non-terminal status.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return forward[from] == to
}
