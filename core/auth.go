package core

import "time"

// Challenge represents a pending sign-in challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Ethereum address of the user (normalized)
	Domain    string    // Domain the challenge is bound to
	Nonce     string    // Random single-use nonce embedded in the message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated user session
type Session struct {
	ID        string    // Unique session identifier (token jti)
	Address   string    // Ethereum address of the user (normalized)
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

// Expired reports whether the session lifetime has elapsed at the given
// instant. A session is valid strictly before its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
