package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims carried by a session token.
// Subject holds the checksummed address, ID the session jti.
type SessionClaims struct {
	jwt.RegisteredClaims
}
