package ports

import (
	"context"

	"github.com/wizardkeep/warden/core"
)

// ProfileStore persists per-identity profiles. Addresses are the EIP-55
// checksummed form throughout.
type ProfileStore interface {
	// Get returns the profile for an address, or core.ErrNoProfile.
	Get(ctx context.Context, address string) (*core.Profile, error)

	// Create inserts a new profile.
	Create(ctx context.Context, profile *core.Profile) error

	// Update applies a partial self-service update and returns the result.
	Update(ctx context.Context, address string, upd core.ProfileUpdate) (*core.Profile, error)

	// SetRole changes the access tier of a profile and returns the result.
	SetRole(ctx context.Context, address string, role core.Role) (*core.Profile, error)

	// List returns all profiles ordered by creation time.
	List(ctx context.Context) ([]*core.Profile, error)
}
