package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wizardkeep/warden/core"
)

// MemoryStore is an in-memory ProfileStore for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*core.Profile
}

// NewMemoryStore creates a new in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*core.Profile)}
}

func (s *MemoryStore) Get(ctx context.Context, address string) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[address]
	if !ok {
		return nil, core.ErrNoProfile
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) Create(ctx context.Context, profile *core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cp := *profile
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.profiles[cp.Address] = &cp
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, address string, upd core.ProfileUpdate) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[address]
	if !ok {
		return nil, core.ErrNoProfile
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&p.Name, upd.Name)
	apply(&p.Email, upd.Email)
	apply(&p.Bio, upd.Bio)
	apply(&p.Twitter, upd.Twitter)
	apply(&p.Discord, upd.Discord)
	apply(&p.Website, upd.Website)
	apply(&p.AvatarURL, upd.AvatarURL)
	p.UpdatedAt = time.Now()

	cp := *p
	return &cp, nil
}

func (s *MemoryStore) SetRole(ctx context.Context, address string, role core.Role) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[address]
	if !ok {
		return nil, core.ErrNoProfile
	}
	p.Role = role
	p.UpdatedAt = time.Now()

	cp := *p
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*core.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		cp := *p
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}
