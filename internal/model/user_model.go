package model

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is a read-only view of the user directory.
type User struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
