package session

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenMismatch = errors.New("refresh token does not match stored hash")
	// ErrRefreshTokenRevoked is returned for a token ended by logout or a session wipe.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrRefreshTokenReused is returned when a token that was already rotated
	// away is presented again.
	ErrRefreshTokenReused = errors.New("refresh token reused")
)

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckRotatable validates a stored row against the presented token.
func (t RefreshToken) CheckRotatable(presentedHash, userID string, now time.Time) error {
	if t.RevokedAt != nil {
		if t.ReplacedBy != nil {
			return ErrRefreshTokenReused
		}
		return ErrRefreshTokenRevoked
	}
	if now.After(t.ExpiresAt) {
		return ErrRefreshTokenExpired
	}
	if t.TokenHash != presentedHash || t.UserID != userID {
		return ErrRefreshTokenMismatch
	}
	return nil
}
