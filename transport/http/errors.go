package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wizardkeep/warden/core"
)

// errorBody is the structured error response: a stable machine-readable
// kind plus a human message. Internal detail stays in the logs.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	status int
	kind   string
}

var errorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{core.ErrInvalidInput, errorMapping{http.StatusBadRequest, "invalid_input"}},
	{core.ErrInvalidChallenge, errorMapping{http.StatusBadRequest, "invalid_challenge"}},
	{core.ErrInvalidSignature, errorMapping{http.StatusUnauthorized, "invalid_signature"}},
	{core.ErrDomainMismatch, errorMapping{http.StatusUnauthorized, "domain_mismatch"}},
	{core.ErrChallengeExpired, errorMapping{http.StatusUnauthorized, "challenge_expired"}},
	{core.ErrNonceReplayed, errorMapping{http.StatusUnauthorized, "nonce_replayed"}},
	{core.ErrUnauthenticated, errorMapping{http.StatusUnauthorized, "unauthenticated"}},
	{core.ErrInvalidToken, errorMapping{http.StatusUnauthorized, "unauthenticated"}},
	{core.ErrTokenExpired, errorMapping{http.StatusUnauthorized, "unauthenticated"}},
	{core.ErrTokenRevoked, errorMapping{http.StatusUnauthorized, "unauthenticated"}},
	{core.ErrNoProfile, errorMapping{http.StatusNotFound, "no_profile"}},
	{core.ErrForbidden, errorMapping{http.StatusForbidden, "forbidden"}},
	{core.ErrTooManyRequests, errorMapping{http.StatusTooManyRequests, "too_many_requests"}},
	{core.ErrUpstreamUnavailable, errorMapping{http.StatusServiceUnavailable, "upstream_unavailable"}},
}

func mapError(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.mapping
		}
	}
	return errorMapping{http.StatusInternalServerError, "internal"}
}

func respondError(c *gin.Context, err error, message string) {
	m := mapError(err)
	if message == "" {
		message = publicMessage(m.kind)
	}
	c.AbortWithStatusJSON(m.status, errorBody{Error: m.kind, Message: message})
}

// publicMessage keeps wrapped internal detail (store errors, parse noise)
// out of responses.
func publicMessage(kind string) string {
	switch kind {
	case "invalid_input":
		return "Request is invalid"
	case "invalid_challenge":
		return "Challenge message is malformed"
	case "invalid_signature":
		return "Signature verification failed"
	case "domain_mismatch":
		return "Challenge is bound to a different domain"
	case "challenge_expired":
		return "Challenge has expired"
	case "nonce_replayed":
		return "Challenge has already been used"
	case "unauthenticated":
		return "Authentication required"
	case "no_profile":
		return "Profile not found"
	case "forbidden":
		return "Insufficient permissions"
	case "too_many_requests":
		return "Rate limit exceeded"
	case "upstream_unavailable":
		return "Service temporarily unavailable"
	default:
		return "Internal error"
	}
}
