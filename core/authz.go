package core

// Authorize is the single policy function deciding whether an identity may
// perform an operation requiring the given role. It is a pure function of
// its inputs; the profile lookup happens at the caller.
//
// Decision order: no identity, then no profile, then role comparison.
func Authorize(identity string, profile *Profile, required Role) error {
	if identity == "" {
		return ErrUnauthenticated
	}
	if profile == nil {
		return ErrNoProfile
	}
	if !profile.Role.Allows(required) {
		return ErrForbidden
	}
	return nil
}
