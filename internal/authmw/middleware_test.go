package authmw

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "http://kc.test/realms/pms"
	testAudience = "pms-front"
	testClient   = "pms-api"
)

func newTestAuth(t *testing.T) (*KeycloakAuth, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewKeycloakAuthWithKeyfunc(kf, testIssuer, testAudience, testClient), key
}

func sign(t *testing.T, key *rsa.PrivateKey, mutate func(*KCClaims)) string {
	t.Helper()
	claims := &KCClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "sub-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		PreferredUsername: "alice",
		Email:             "alice@example.com",
	}
	claims.RealmAccess.Roles = []string{"student"}
	if mutate != nil {
		mutate(claims)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func serve(t *testing.T, mw gin.HandlerFunc, token string) (*httptest.ResponseRecorder, gin.H) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen gin.H
	r.GET("/p", mw, func(c *gin.Context) {
		seen = gin.H{"user": Username(c), "roles": Roles(c)}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestRequireRolesAcceptsRealmRole(t *testing.T) {
	a, key := newTestAuth(t)

	w, seen := serve(t, a.RequireRoles("student", "admin"), sign(t, key, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "alice", seen["user"])
	assert.Equal(t, []string{"student"}, seen["roles"])
}

func TestRequireRolesAcceptsClientRole(t *testing.T) {
	a, key := newTestAuth(t)
	tok := sign(t, key, func(c *KCClaims) {
		c.RealmAccess.Roles = nil
		c.ResourceAccess = map[string]struct {
			Roles []string `json:"roles"`
		}{
			testClient: {Roles: []string{"leader"}},
			"other":    {Roles: []string{"admin"}},
		}
	})

	w, seen := serve(t, a.RequireRoles("leader"), tok)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"leader"}, seen["roles"])
}

func TestRequireRolesRejects(t *testing.T) {
	a, key := newTestAuth(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		roles []string
		code  int
	}{
		{"missing token", "", []string{"student"}, http.StatusUnauthorized},
		{"foreign signature", sign(t, other, nil), []string{"student"}, http.StatusUnauthorized},
		{"wrong issuer", sign(t, key, func(c *KCClaims) { c.Issuer = "http://evil" }), []string{"student"}, http.StatusUnauthorized},
		{"wrong audience", sign(t, key, func(c *KCClaims) { c.Audience = jwt.ClaimStrings{"x"} }), []string{"student"}, http.StatusUnauthorized},
		{"expired", sign(t, key, func(c *KCClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}), []string{"student"}, http.StatusUnauthorized},
		{"insufficient role", sign(t, key, nil), []string{"admin"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := serve(t, a.RequireRoles(tc.roles...), tc.token)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestStaticAuth(t *testing.T) {
	s := StaticAuth{Username: "dev", Roles: []string{"admin"}}

	w, seen := serve(t, s.RequireRoles("leader", "admin"), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "dev", seen["user"])

	w, _ = serve(t, s.RequireRoles("student"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCollectRolesDeduplicates(t *testing.T) {
	claims := &KCClaims{}
	claims.RealmAccess.Roles = []string{"student", "", "leader"}
	claims.ResourceAccess = map[string]struct {
		Roles []string `json:"roles"`
	}{testClient: {Roles: []string{"leader", "admin"}}}

	assert.Equal(t, []string{"student", "leader", "admin"}, collectRoles(claims, testClient))
	assert.Equal(t, []string{"student", "leader"}, collectRoles(claims, ""))
}
