package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/internal/eth"
	"github.com/wizardkeep/warden/ports"
)

const (
	maxNameLen   = 64
	maxEmailLen  = 254
	maxBioLen    = 1024
	maxHandleLen = 64
	maxURLLen    = 256
)

// ProfileService exposes profile reads, self-service updates and the
// admin-only role assignment.
type ProfileService struct {
	profiles      ports.ProfileStore
	log           *logrus.Logger
	lookupTimeout time.Duration
}

// NewProfileService creates a new profile service.
func NewProfileService(profiles ports.ProfileStore, log *logrus.Logger, lookupTimeout time.Duration) *ProfileService {
	if lookupTimeout == 0 {
		lookupTimeout = 3 * time.Second
	}
	return &ProfileService{
		profiles:      profiles,
		log:           log,
		lookupTimeout: lookupTimeout,
	}
}

// Get returns the profile for an address.
func (s *ProfileService) Get(ctx context.Context, address string) (*core.Profile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.profiles.Get(opCtx, address)
}

// Update applies a validated partial update to the caller's own profile.
// Every violation is collected so the client sees them all at once.
func (s *ProfileService) Update(ctx context.Context, address string, upd core.ProfileUpdate) (*core.Profile, error) {
	if violations := validateUpdate(upd); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidInput, strings.Join(violations, "; "))
	}

	opCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.profiles.Update(opCtx, address, upd)
}

// List returns all profiles, oldest first. Admin only; enforcement happens
// in the transport layer.
func (s *ProfileService) List(ctx context.Context) ([]*core.Profile, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.profiles.List(opCtx)
}

// SetRole changes the access tier of a profile.
func (s *ProfileService) SetRole(ctx context.Context, address string, role core.Role) (*core.Profile, error) {
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrInvalidInput, role)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	profile, err := s.profiles.SetRole(opCtx, normalized, role)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"address": normalized,
		"role":    role,
	}).Info("role changed")

	return profile, nil
}

func validateUpdate(upd core.ProfileUpdate) []string {
	var violations []string

	checkLen := func(field string, v *string, max int) {
		if v != nil && len(*v) > max {
			violations = append(violations, fmt.Sprintf("%s exceeds %d characters", field, max))
		}
	}
	checkLen("name", upd.Name, maxNameLen)
	checkLen("bio", upd.Bio, maxBioLen)
	checkLen("twitter", upd.Twitter, maxHandleLen)
	checkLen("discord", upd.Discord, maxHandleLen)

	if upd.Email != nil && *upd.Email != "" {
		if len(*upd.Email) > maxEmailLen || !strings.Contains(*upd.Email, "@") {
			violations = append(violations, "email is not a valid address")
		}
	}

	checkURL := func(field string, v *string) {
		if v == nil || *v == "" {
			return
		}
		if len(*v) > maxURLLen {
			violations = append(violations, fmt.Sprintf("%s exceeds %d characters", field, maxURLLen))
			return
		}
		u, err := url.Parse(*v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			violations = append(violations, fmt.Sprintf("%s must be an http(s) url", field))
		}
	}
	checkURL("website", upd.Website)
	checkURL("avatar_url", upd.AvatarURL)

	return violations
}
