package core

import "errors"

// Authentication-stage errors, returned while verifying a signed challenge.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrDomainMismatch   = errors.New("challenge domain mismatch")
	ErrChallengeExpired = errors.New("challenge has expired")
	ErrNonceReplayed    = errors.New("nonce already consumed")
	ErrInvalidChallenge = errors.New("invalid challenge message")
)

// Authorization-stage errors, returned when resolving an identity to an
// operation it may perform.
var (
	ErrUnauthenticated = errors.New("no authenticated identity")
	ErrNoProfile       = errors.New("no profile for identity")
	ErrForbidden       = errors.New("insufficient role")
)

// Middleware and infrastructure errors.
var (
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Session errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
	ErrTokenRevoked = errors.New("session token has been revoked")
)
