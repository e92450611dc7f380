package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizardkeep/warden/adapters/events"
	"github.com/wizardkeep/warden/adapters/profiles"
	"github.com/wizardkeep/warden/adapters/store"
	"github.com/wizardkeep/warden/adapters/tokenizer"
	"github.com/wizardkeep/warden/core"
	"github.com/wizardkeep/warden/service"
)

const testDomain = "wizardkeep.xyz"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type testServer struct {
	router   *gin.Engine
	profiles *profiles.MemoryStore
	key      *ecdsa.PrivateKey
	address  string
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	keyed := store.NewMemoryStore()
	profileStore := profiles.NewMemoryStore()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer([]byte("test-secret")),
		keyed, keyed, profileStore,
		events.NopPublisher{},
		log,
		service.AuthConfig{
			Domain:       testDomain,
			URI:          "https://" + testDomain,
			ChainID:      1,
			ChallengeTTL: 5 * time.Minute,
			SessionTTL:   time.Hour,
		},
	)
	profileService := service.NewProfileService(profileStore, log, 0)

	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"*"}
	}
	if cfg.AuthLimit.Max == 0 {
		cfg.AuthLimit = RouteLimit{Max: 100, Window: time.Minute}
	}
	if cfg.APILimit.Max == 0 {
		cfg.APILimit = RouteLimit{Max: 100, Window: time.Minute}
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "warden_session"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}

	return &testServer{
		router:   SetupRouter(authService, profileService, keyed, log, cfg),
		profiles: profileStore,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.1.2.3:4321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), ts.key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

// login runs the challenge/verify handshake and returns the session token.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var challenge struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	w = ts.do(t, http.MethodPost, "/auth/verify", gin.H{
		"message":   challenge.Message,
		"signature": ts.sign(t, challenge.Message),
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	require.NotEmpty(t, verified.Token)
	return verified.Token
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestFullLoginFlow(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	token := ts.login(t)

	w := ts.do(t, http.MethodGet, "/api/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Address string        `json:"address"`
		Profile *core.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, ts.address, me.Address)
	require.NotNil(t, me.Profile)
	assert.Equal(t, core.RoleUser, me.Profile.Role)

	w = ts.do(t, http.MethodPut, "/api/profile", gin.H{"name": "Kobold"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var p core.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Kobold", p.Name)

	w = ts.do(t, http.MethodPost, "/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", errorKind(t, w))
}

func TestSessionCookieAuthenticates(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var challenge struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	w = ts.do(t, http.MethodPost, "/auth/verify", gin.H{
		"message":   challenge.Message,
		"signature": ts.sign(t, challenge.Message),
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "warden_session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "verify must set the session cookie")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.RemoteAddr = "10.1.2.3:4321"
	req.AddCookie(sessionCookie)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticatedCarriesCORSHeaders(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", errorKind(t, w))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"),
		"rejections still carry CORS headers")
}

func TestCORSAllowList(t *testing.T) {
	ts := newTestServer(t, RouterConfig{CORSOrigins: []string{"https://wizardkeep.xyz"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://wizardkeep.xyz")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, "https://wizardkeep.xyz", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "https://wizardkeep.xyz")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, RouterConfig{
		AuthLimit: RouteLimit{Max: 2, Window: time.Minute},
	})

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
		require.Equal(t, http.StatusOK, w.Code, "request %d within budget", i+1)
	}

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too_many_requests", errorKind(t, w))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminGate(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	token := ts.login(t)

	w := ts.do(t, http.MethodGet, "/api/admin/profiles", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorKind(t, w))

	_, err := ts.profiles.SetRole(context.Background(), ts.address, core.RoleAdmin)
	require.NoError(t, err)

	w = ts.do(t, http.MethodGet, "/api/admin/profiles", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, "/api/admin/profiles/"+ts.address+"/role", gin.H{"role": "user"}, token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestBodyValidationPrecedesAuth(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	// No session at all: the out-of-shape body must be rejected as invalid
	// input before authentication gets a say.
	w := ts.do(t, http.MethodPut, "/api/profile", gin.H{"role": "admin"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorKind(t, w))

	w = ts.do(t, http.MethodPut, "/api/admin/profiles/"+ts.address+"/role", gin.H{"unexpected": 1}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorKind(t, w))

	// A well-shaped body without a session still stops at authentication.
	w = ts.do(t, http.MethodPut, "/api/profile", gin.H{"name": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", errorKind(t, w))
}

func TestChallengeResponseFields(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ChallengeID string `json:"challenge_id"`
		Message     string `json:"message"`
		Nonce       string `json:"nonce"`
		ExpiresAt   string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ChallengeID)
	assert.NotEmpty(t, resp.Nonce)
	assert.Contains(t, resp.Message, resp.Nonce)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestProfileUpdateRejectsRoleField(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	token := ts.login(t)

	w := ts.do(t, http.MethodPut, "/api/profile", gin.H{"name": "x", "role": "admin"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorKind(t, w))

	// The stored role is untouched.
	p, err := ts.profiles.Get(context.Background(), ts.address)
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, p.Role)
}

func TestProfileUpdateValidationOverHTTP(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	token := ts.login(t)

	w := ts.do(t, http.MethodPut, "/api/profile", gin.H{"website": "ftp://example.com"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorKind(t, w))
}

func TestVerifyErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{"address": ts.address}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var challenge struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challenge))

	// Wrong signer.
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), otherKey)
	require.NoError(t, err)
	sig[64] += 27

	w = ts.do(t, http.MethodPost, "/auth/verify", gin.H{
		"message":   challenge.Message,
		"signature": hexutil.Encode(sig),
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_signature", errorKind(t, w))

	// The failed attempt consumed the nonce; a correct retry is a replay.
	w = ts.do(t, http.MethodPost, "/auth/verify", gin.H{
		"message":   challenge.Message,
		"signature": ts.sign(t, challenge.Message),
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "nonce_replayed", errorKind(t, w))

	// Garbage message.
	w = ts.do(t, http.MethodPost, "/auth/verify", gin.H{
		"message":   "not a challenge",
		"signature": "0x00",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_challenge", errorKind(t, w))
}

func TestChallengeRequiresAddress(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodPost, "/auth/challenge", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorKind(t, w))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	w := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
