package core

import "time"

// Role is the access tier attribute of a Profile. It is the sole input to
// the authorization decision.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is a known tier.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Allows reports whether a holder of this role may perform an operation
// requiring the given role. Admin subsumes user.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// Profile is the persisted record keyed by a wallet address.
type Profile struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Twitter   string    `json:"twitter"`
	Discord   string    `json:"discord"`
	Website   string    `json:"website"`
	AvatarURL string    `json:"avatar_url"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries a partial self-service update. Nil fields are left
// untouched. Role is deliberately absent; it can only change through the
// admin path.
type ProfileUpdate struct {
	Name      *string
	Email     *string
	Bio       *string
	Twitter   *string
	Discord   *string
	Website   *string
	AvatarURL *string
}
