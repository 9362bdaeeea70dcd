// file: model/token.go

package model

import "time"

// RefreshToken holds the data for a refresh token in the database.
// Only the SHA-256 hash of the token is stored; Token is set when the
// token is minted so it can be handed to the client once.
type RefreshToken struct {
	ID             int        `json:"id"`
	UserID         int        `json:"user_id"`
	Token          string     `json:"-"`
	TokenHash      string     `json:"-"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedByIP    string     `json:"created_by_ip,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP    string     `json:"revoked_by_ip,omitempty"`
	ReplacedByHash *string    `json:"-"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked()
}

// WasRotated reports whether the token was revoked as part of a rotation.
func (t *RefreshToken) WasRotated() bool {
	return t.IsRevoked() && t.ReplacedByHash != nil
}
