package tokenizer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizardkeep/warden/core"
)

var testSecret = []byte("test-secret-never-use-in-production")

func newSession(ttl time.Duration) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:        uuid.New().String(),
		Address:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestIssueAndParseSession(t *testing.T) {
	tk := NewJWTTokenizer(testSecret)
	session := newSession(time.Hour)

	token, err := tk.IssueSession(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := tk.ParseSession(token)
	require.NoError(t, err)

	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.Address, parsed.Address)
	assert.WithinDuration(t, session.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestParseSessionExpired(t *testing.T) {
	tk := NewJWTTokenizer(testSecret)
	session := newSession(-time.Minute)

	token, err := tk.IssueSession(session)
	require.NoError(t, err)

	_, err = tk.ParseSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestParseSessionWrongSecret(t *testing.T) {
	tk := NewJWTTokenizer(testSecret)
	session := newSession(time.Hour)

	token, err := tk.IssueSession(session)
	require.NoError(t, err)

	other := NewJWTTokenizer([]byte("a-different-secret"))
	_, err = other.ParseSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestParseSessionGarbage(t *testing.T) {
	tk := NewJWTTokenizer(testSecret)

	_, err := tk.ParseSession("not.a.token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tk.ParseSession("")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestParseSessionRejectsForeignAudience(t *testing.T) {
	// A token minted for some other purpose with the same secret must not
	// pass as a session.
	claims := jwt.RegisteredClaims{
		Subject:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ID:        uuid.New().String(),
		Audience:  jwt.ClaimStrings{"warden:other"},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	tk := NewJWTTokenizer(testSecret)
	_, err = tk.ParseSession(foreign)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestParseSessionRequiresTimestamps(t *testing.T) {
	tk := NewJWTTokenizer(testSecret)

	// Validly signed but without an expiry.
	noExp := jwt.RegisteredClaims{
		Subject:  "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ID:       uuid.New().String(),
		Audience: jwt.ClaimStrings{AudienceSession},
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString(testSecret)
	require.NoError(t, err)

	_, err = tk.ParseSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	// Expiry present, issued-at missing.
	noIat := jwt.RegisteredClaims{
		Subject:   "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		ID:        uuid.New().String(),
		Audience:  jwt.ClaimStrings{AudienceSession},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, noIat).SignedString(testSecret)
	require.NoError(t, err)

	_, err = tk.ParseSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
