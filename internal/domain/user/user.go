package user

import (
	"errors"
	"time"
)

const (
	RoleClerk   = "clerk"
	RoleManager = "manager"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already in use")
	ErrInvalidRole   = errors.New("unknown staff role")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsValidRole reports whether role is one of the seeded staff roles.
func IsValidRole(role string) bool {
	return role == RoleClerk || role == RoleManager
}
