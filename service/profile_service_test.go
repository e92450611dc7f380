package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizardkeep/warden/adapters/profiles"
	"github.com/wizardkeep/warden/core"
)

func newProfileEnv(t *testing.T) (*ProfileService, *profiles.MemoryStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store := profiles.NewMemoryStore()
	return NewProfileService(store, log, 0), store
}

func strPtr(s string) *string { return &s }

func TestProfileUpdate(t *testing.T) {
	svc, store := newProfileEnv(t)
	ctx := context.Background()
	addr := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	require.NoError(t, store.Create(ctx, &core.Profile{Address: addr, Role: core.RoleUser}))

	updated, err := svc.Update(ctx, addr, core.ProfileUpdate{
		Name:    strPtr("Kobold"),
		Website: strPtr("https://wizardkeep.xyz"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Kobold", updated.Name)
	assert.Equal(t, "https://wizardkeep.xyz", updated.Website)
	assert.Equal(t, core.RoleUser, updated.Role)

	// Partial: untouched fields survive.
	updated, err = svc.Update(ctx, addr, core.ProfileUpdate{Bio: strPtr("Keeper of the keep")})
	require.NoError(t, err)
	assert.Equal(t, "Kobold", updated.Name)
	assert.Equal(t, "Keeper of the keep", updated.Bio)
}

func TestProfileUpdateValidation(t *testing.T) {
	svc, store := newProfileEnv(t)
	ctx := context.Background()
	addr := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	require.NoError(t, store.Create(ctx, &core.Profile{Address: addr, Role: core.RoleUser}))

	tests := []struct {
		name string
		upd  core.ProfileUpdate
	}{
		{"name too long", core.ProfileUpdate{Name: strPtr(strings.Repeat("x", 65))}},
		{"bio too long", core.ProfileUpdate{Bio: strPtr(strings.Repeat("x", 1025))}},
		{"bad email", core.ProfileUpdate{Email: strPtr("not-an-email")}},
		{"website not http", core.ProfileUpdate{Website: strPtr("ftp://example.com")}},
		{"website garbage", core.ProfileUpdate{Website: strPtr("://nope")}},
		{"avatar not a url", core.ProfileUpdate{AvatarURL: strPtr("javascript:alert(1)")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, addr, tt.upd)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}

	// Nothing was persisted by the failed updates.
	p, err := store.Get(ctx, addr)
	require.NoError(t, err)
	assert.Empty(t, p.Name)
	assert.Empty(t, p.Email)
}

func TestProfileUpdateCollectsAllViolations(t *testing.T) {
	svc, store := newProfileEnv(t)
	ctx := context.Background()
	addr := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	require.NoError(t, store.Create(ctx, &core.Profile{Address: addr, Role: core.RoleUser}))

	_, err := svc.Update(ctx, addr, core.ProfileUpdate{
		Name:  strPtr(strings.Repeat("x", 65)),
		Email: strPtr("nope"),
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "email")
}

func TestProfileUpdateMissingProfile(t *testing.T) {
	svc, _ := newProfileEnv(t)

	_, err := svc.Update(context.Background(), "0x8ba1f109551bD432803012645Ac136ddd64DBA72", core.ProfileUpdate{
		Name: strPtr("Kobold"),
	})
	assert.ErrorIs(t, err, core.ErrNoProfile)
}

func TestSetRole(t *testing.T) {
	svc, store := newProfileEnv(t)
	ctx := context.Background()
	addr := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

	require.NoError(t, store.Create(ctx, &core.Profile{Address: addr, Role: core.RoleUser}))

	// Lowercase input is normalized to the stored checksummed form.
	updated, err := svc.SetRole(ctx, strings.ToLower(addr), core.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, updated.Role)

	_, err = svc.SetRole(ctx, addr, core.Role("overlord"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.SetRole(ctx, "nope", core.RoleAdmin)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
