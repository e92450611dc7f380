package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/internal/eth"
	"github.com/wizardkeep/warden/ports"
)

// AuthConfig carries the knobs the auth service needs.
type AuthConfig struct {
	Domain        string // external origin challenges are bound to
	URI           string
	ChainID       int64
	ChallengeTTL  time.Duration
	SessionTTL    time.Duration
	LookupTimeout time.Duration
}

// AuthService handles challenge issuance, signature verification, session
// issuance and sign-out.
type AuthService struct {
	tokenizer   ports.Tokenizer
	nonces      ports.NonceStore
	revocations ports.RevocationStore
	profiles    ports.ProfileStore
	eventPub    ports.EventPublisher
	log         *logrus.Logger
	cfg         AuthConfig
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	tokenizer ports.Tokenizer,
	nonces ports.NonceStore,
	revocations ports.RevocationStore,
	profiles ports.ProfileStore,
	eventPub ports.EventPublisher,
	log *logrus.Logger,
	cfg AuthConfig,
) *AuthService {
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = 3 * time.Second
	}
	return &AuthService{
		tokenizer:   tokenizer,
		nonces:      nonces,
		revocations: revocations,
		profiles:    profiles,
		eventPub:    eventPub,
		log:         log,
		cfg:         cfg,
	}
}

// CreateChallenge builds a sign-in message for the address and records its
// nonce. The client must sign the returned text verbatim.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, string, error) {
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	now := time.Now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   normalized,
		Domain:    s.cfg.Domain,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.ChallengeTTL),
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	if err := s.nonces.Issue(opCtx, nonce, s.cfg.ChallengeTTL); err != nil {
		return nil, "", err
	}

	return challenge, s.renderMessage(challenge), nil
}

func (s *AuthService) renderMessage(c *core.Challenge) string {
	msg := &eth.Message{
		Domain:         c.Domain,
		Address:        common.HexToAddress(c.Address),
		Statement:      "Sign in to Wizardkeep.",
		URI:            s.cfg.URI,
		Version:        "1",
		ChainID:        s.cfg.ChainID,
		Nonce:          c.Nonce,
		IssuedAt:       c.IssuedAt,
		ExpirationTime: c.ExpiresAt,
	}
	return msg.String()
}

// Verify checks a signed challenge and, on success, provisions a profile
// if none exists yet and issues a session token.
//
// Order matters: the nonce is consumed before the signature is checked, so
// a failed attempt burns the challenge too.
func (s *AuthService) Verify(ctx context.Context, rawMessage, signature string) (string, *core.Session, *core.Profile, error) {
	msg, err := eth.ParseMessage(rawMessage)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", core.ErrInvalidChallenge, err)
	}

	if msg.Domain != s.cfg.Domain {
		return "", nil, nil, fmt.Errorf("%w: got %q, want %q", core.ErrDomainMismatch, msg.Domain, s.cfg.Domain)
	}

	now := time.Now()
	if !now.Before(msg.ExpirationTime) {
		return "", nil, nil, core.ErrChallengeExpired
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	consumed, err := s.nonces.Consume(opCtx, msg.Nonce)
	if err != nil {
		return "", nil, nil, err
	}
	if !consumed {
		return "", nil, nil, core.ErrNonceReplayed
	}

	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	ok, err := eth.VerifyMessageSignature(rawMessage, sig, msg.Address)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if !ok {
		return "", nil, nil, core.ErrInvalidSignature
	}

	address := msg.Address.Hex()

	profile, err := s.ensureProfile(ctx, address)
	if err != nil {
		return "", nil, nil, err
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	token, err := s.tokenizer.IssueSession(session)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, address, session.ID); err != nil {
		s.log.WithError(err).WithField("address", address).Warn("failed to publish login event")
	}

	return token, session, profile, nil
}

// ensureProfile loads the profile for an address, creating a default one
// on first login. Provisioning here keeps the authorization gate itself a
// pure policy function.
func (s *AuthService) ensureProfile(ctx context.Context, address string) (*core.Profile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	profile, err := s.profiles.Get(opCtx, address)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, core.ErrNoProfile) {
		return nil, err
	}

	profile = &core.Profile{
		Address: address,
		Role:    core.RoleUser,
	}
	if err := s.profiles.Create(opCtx, profile); err != nil {
		return nil, err
	}
	return s.profiles.Get(opCtx, address)
}

// ResolveSession recovers the identity carried by a session token. Pure
// token verification, no store lookups.
func (s *AuthService) ResolveSession(token string) (*core.Session, error) {
	return s.tokenizer.ParseSession(token)
}

// ValidateSession resolves a token and additionally checks the sign-out
// revocation list.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.ResolveSession(token)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, core.ErrTokenExpired
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	revoked, err := s.revocations.IsRevoked(opCtx, session.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, core.ErrTokenRevoked
	}

	return session, nil
}

// Logout revokes a session token for its remaining lifetime, floored at
// an hour so a token near or past expiry cannot be resurrected by skewed
// clocks.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.ResolveSession(token)
	if err != nil {
		return err
	}

	remaining := time.Until(session.ExpiresAt)
	if remaining < time.Hour {
		remaining = time.Hour
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	if err := s.revocations.Revoke(opCtx, session.ID, remaining); err != nil {
		return err
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
		s.log.WithError(err).WithField("address", session.Address).Warn("failed to publish logout event")
	}

	return nil
}

// LoadProfile fetches the stored profile for an identity under the lookup
// timeout. Used by the authorization middleware.
func (s *AuthService) LoadProfile(ctx context.Context, address string) (*core.Profile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	return s.profiles.Get(opCtx, address)
}
