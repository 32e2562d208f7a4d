package session

import (
	"testing"
	"time"
)

func TestCheckRotatable(t *testing.T) {
	now := time.Now().UTC()
	revoked := now.Add(-time.Minute)
	successor := "jti-2"

	base := RefreshToken{
		ID:        "jti-1",
		UserID:    "user-1",
		TokenHash: "hash",
		ExpiresAt: now.Add(time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(*RefreshToken)
		hash   string
		userID string
		want   error
	}{
		{name: "ok", hash: "hash", userID: "user-1", want: nil},
		{name: "rotated_away", mutate: func(r *RefreshToken) { r.RevokedAt, r.ReplacedBy = &revoked, &successor }, hash: "hash", userID: "user-1", want: ErrRefreshTokenReused},
		{name: "logged_out", mutate: func(r *RefreshToken) { r.RevokedAt = &revoked }, hash: "hash", userID: "user-1", want: ErrRefreshTokenRevoked},
		{name: "expired", mutate: func(r *RefreshToken) { r.ExpiresAt = now.Add(-time.Second) }, hash: "hash", userID: "user-1", want: ErrRefreshTokenExpired},
		{name: "hash_mismatch", hash: "other", userID: "user-1", want: ErrRefreshTokenMismatch},
		{name: "user_mismatch", hash: "hash", userID: "user-2", want: ErrRefreshTokenMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := base
			if tt.mutate != nil {
				tt.mutate(&row)
			}
			if got := row.CheckRotatable(tt.hash, tt.userID, now); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}
