package authmw

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by every authenticator in this package.
const (
	CtxAccessToken = "kc.access_token"
	CtxUsername    = "kc.username"
	CtxEmail       = "kc.email"
	CtxRoles       = "kc.roles"
	CtxSubject     = "kc.sub"
)

// Authenticator guards a route group by realm or client role.
type Authenticator interface {
	RequireRoles(anyOf ...string) gin.HandlerFunc
}

type KeycloakAuth struct {
	Issuer   string // e.g. http://localhost:8080/realms/myrealm
	Audience string
	ClientID string // for client roles under resource_access[ClientID].roles
	Leeway   time.Duration

	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

// NewKeycloakAuth fetches the realm JWKS once and keeps it refreshed in the
// background. Call Close to stop the refresher.
func NewKeycloakAuth(jwksURL, issuer, audience, clientID string) (*KeycloakAuth, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute * 5,
		RefreshTimeout:   time.Second * 10,
	})
	if err != nil {
		return nil, err
	}

	a := NewKeycloakAuthWithKeyfunc(jwks.Keyfunc, issuer, audience, clientID)
	a.jwks = jwks
	return a, nil
}

// NewKeycloakAuthWithKeyfunc verifies tokens against a caller supplied key
// lookup instead of a remote JWKS.
func NewKeycloakAuthWithKeyfunc(kf jwt.Keyfunc, issuer, audience, clientID string) *KeycloakAuth {
	return &KeycloakAuth{
		Issuer:   issuer,
		Audience: audience,
		ClientID: clientID,
		Leeway:   30 * time.Second,
		keyfunc:  kf,
	}
}

func (a *KeycloakAuth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

type KCClaims struct {
	jwt.RegisteredClaims

	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`

	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`

	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

func (a *KeycloakAuth) RequireRoles(anyOf ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractAccessToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims := &KCClaims{}
		_, err = jwt.ParseWithClaims(tokenStr, claims, a.keyfunc,
			jwt.WithIssuer(a.Issuer),
			jwt.WithAudience(a.Audience),
			jwt.WithLeeway(a.Leeway),
			jwt.WithValidMethods([]string{"RS256"}),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		roles := collectRoles(claims, a.ClientID)

		c.Set(CtxAccessToken, tokenStr)
		c.Set(CtxUsername, claims.PreferredUsername)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRoles, roles)
		c.Set(CtxSubject, claims.Subject)

		if !hasAnyRole(roles, anyOf...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Next()
	}
}

// StaticAuth authenticates every request as one fixed identity. It backs
// AUTH_DISABLED local runs and handler tests.
type StaticAuth struct {
	Username string
	Roles    []string
}

func (s StaticAuth) RequireRoles(anyOf ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUsername, s.Username)
		c.Set(CtxRoles, slices.Clone(s.Roles))

		if !hasAnyRole(s.Roles, anyOf...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Username is the authenticated user, or "" on unguarded routes.
func Username(c *gin.Context) string {
	return c.GetString(CtxUsername)
}

func Roles(c *gin.Context) []string {
	return c.GetStringSlice(CtxRoles)
}

func HasRole(c *gin.Context, role string) bool {
	return hasAnyRole(Roles(c), role)
}

// --- helpers ---

func extractAccessToken(c *gin.Context) (string, error) {
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		if tok := strings.TrimSpace(authz[7:]); tok != "" {
			return tok, nil
		}
	}

	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, nil
	}

	return "", errors.New("missing access token")
}

func collectRoles(claims *KCClaims, clientID string) []string {
	out := make([]string, 0, 16)

	out = append(out, claims.RealmAccess.Roles...)

	if clientID != "" && claims.ResourceAccess != nil {
		if ra, ok := claims.ResourceAccess[clientID]; ok {
			out = append(out, ra.Roles...)
		}
	}

	return uniq(out)
}

func hasAnyRole(userRoles []string, anyOf ...string) bool {
	for _, required := range anyOf {
		if slices.Contains(userRoles, required) {
			return true
		}
	}
	return false
}

func uniq(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
