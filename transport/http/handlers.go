package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/service"
)

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandlers contains HTTP handlers for auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
	sessionTTL  time.Duration
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig, sessionTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		sessionTTL:  sessionTTL,
	}
}

// Challenge issues a sign-in challenge for an address.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, core.ErrInvalidInput, "address is required")
		return
	}

	challenge, message, err := h.authService.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id": challenge.ID,
		"message":      message,
		"nonce":        challenge.Nonce,
		"expires_at":   challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Verify checks a signed challenge and establishes a session.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, core.ErrInvalidInput, "message and signature are required")
		return
	}

	token, session, profile, err := h.authService.Verify(c.Request.Context(), req.Message, req.Signature)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.SetCookie(h.cookie.Name, token, int(h.sessionTTL.Seconds()), "/", "", h.cookie.Secure, true)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(time.Until(session.ExpiresAt).Seconds()),
		"address":    session.Address,
		"profile":    profile,
	})
}

// Logout revokes the caller's session and clears the cookie.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token := c.GetString(ctxKeyToken)

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err, "")
		return
	}

	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ProfileHandlers contains HTTP handlers for profile endpoints.
type ProfileHandlers struct {
	profileService *service.ProfileService
}

// NewProfileHandlers creates new profile handlers.
func NewProfileHandlers(profileService *service.ProfileService) *ProfileHandlers {
	return &ProfileHandlers{profileService: profileService}
}

// Me returns the authenticated identity together with its profile.
func (h *ProfileHandlers) Me(c *gin.Context) {
	address := c.GetString(ctxKeyAddress)

	profile, err := h.profileService.Get(c.Request.Context(), address)
	if err != nil && !errors.Is(err, core.ErrNoProfile) {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"profile": profile,
	})
}

// GetProfile returns the caller's own profile.
func (h *ProfileHandlers) GetProfile(c *gin.Context) {
	address := c.GetString(ctxKeyAddress)

	profile, err := h.profileService.Get(c.Request.Context(), address)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// updateProfileRequest enumerates the self-service fields. Anything else
// in the body, role in particular, fails the strict decode below.
type updateProfileRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	Twitter   *string `json:"twitter"`
	Discord   *string `json:"discord"`
	Website   *string `json:"website"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateProfile applies a partial update to the caller's own profile.
// The body shape was already checked by the ValidateBody stage.
func (h *ProfileHandlers) UpdateProfile(c *gin.Context) {
	address := c.GetString(ctxKeyAddress)
	req := c.MustGet(ctxKeyBody).(*updateProfileRequest)

	profile, err := h.profileService.Update(c.Request.Context(), address, core.ProfileUpdate{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		Twitter:   req.Twitter,
		Discord:   req.Discord,
		Website:   req.Website,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(c, err, updateMessage(err))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ListProfiles returns every profile. Admin only.
func (h *ProfileHandlers) ListProfiles(c *gin.Context) {
	profiles, err := h.profileService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// setRoleRequest is the body shape for the admin role assignment route.
type setRoleRequest struct {
	Role core.Role `json:"role"`
}

// SetRole changes the access tier of a profile. Admin only.
func (h *ProfileHandlers) SetRole(c *gin.Context) {
	req := c.MustGet(ctxKeyBody).(*setRoleRequest)
	if req.Role == "" {
		respondError(c, core.ErrInvalidInput, "role is required")
		return
	}

	profile, err := h.profileService.SetRole(c.Request.Context(), c.Param("address"), req.Role)
	if err != nil {
		respondError(c, err, updateMessage(err))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// decodeStrict rejects bodies carrying fields outside the declared shape.
func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// updateMessage surfaces validation detail for invalid-input failures
// while keeping everything else generic.
func updateMessage(err error) string {
	if errors.Is(err, core.ErrInvalidInput) {
		return err.Error()
	}
	return ""
}
