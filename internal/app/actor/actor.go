// Package actor implements the Identity & Authorization Adapter (spec.md
// §2.1, §4.5): turning an incoming request into an actor context and
// answering has_scopes / authorize.
package actor

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// Mode is the authentication channel the actor was resolved from.
type Mode string

const (
	ModeSession        Mode = "session"
	ModeDelegatedAgent Mode = "delegated-agent"
	ModePersonalAccess Mode = "personal-access-token"
)

// Context is the resolved identity of the caller for the lifetime of one
// request. Session actors implicitly carry every scope (spec.md §4.5).
type Context struct {
	Mode          Mode
	UID           string
	Scopes        map[string]struct{}
	AgentClientID string
	TokenID       string
	IsStaff       bool
}

// Claims is the set of registered + custom claims carried by a session or
// delegated-agent bearer token (teacher: cmd/gateway/middleware.go Claims).
type Claims struct {
	UID           string   `json:"uid"`
	Scopes        []string `json:"scopes"`
	AgentClientID string   `json:"agentClientId,omitempty"`
	Staff         bool     `json:"staff"`
	jwt.RegisteredClaims
}

// PATLookup resolves an opaque personal-access-token value to its owning
// uid, granted scopes, and token id. Identity-provider token verification
// itself is out of scope (spec.md §1); this interface is the external
// collaborator boundary.
type PATLookup interface {
	LookupPAT(ctx context.Context, token string) (uid string, scopes []string, tokenID string, isStaff bool, err error)
}

// Resolver builds an actor Context from an *http.Request.
type Resolver struct {
	secret    []byte
	patLookup PATLookup
}

// NewResolver constructs a Resolver. secret verifies session/delegated-agent
// JWTs (HMAC, matching the teacher's golang-jwt/jwt/v5 usage).
func NewResolver(secret []byte, patLookup PATLookup) *Resolver {
	return &Resolver{secret: secret, patLookup: patLookup}
}

// Resolve inspects the Authorization and X-Personal-Access-Token headers
// and returns the actor Context, or an UNAUTHENTICATED ServiceError.
func (r *Resolver) Resolve(req *http.Request) (*Context, error) {
	if pat := strings.TrimSpace(req.Header.Get("X-Personal-Access-Token")); pat != "" {
		return r.resolvePAT(req.Context(), pat)
	}

	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return nil, apperrors.Unauthenticated("missing authorization")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, apperrors.Unauthenticated("invalid authorization header")
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return r.resolveBearer(tokenStr)
}

func (r *Resolver) resolvePAT(ctx context.Context, token string) (*Context, error) {
	if r.patLookup == nil {
		return nil, apperrors.Unauthenticated("personal access tokens are not configured")
	}
	uid, scopes, tokenID, isStaff, err := r.patLookup.LookupPAT(ctx, token)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid personal access token")
	}
	return &Context{
		Mode:    ModePersonalAccess,
		UID:     uid,
		Scopes:  toScopeSet(scopes),
		TokenID: tokenID,
		IsStaff: isStaff,
	}, nil
}

func (r *Resolver) resolveBearer(tokenStr string) (*Context, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthenticated("invalid or expired token")
	}

	mode := ModeSession
	if claims.AgentClientID != "" {
		mode = ModeDelegatedAgent
	}

	ctx := &Context{
		Mode:          mode,
		UID:           claims.UID,
		AgentClientID: claims.AgentClientID,
		IsStaff:       claims.Staff,
		Scopes:        toScopeSet(claims.Scopes),
	}
	return ctx, nil
}

func toScopeSet(scopes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[strings.TrimSpace(s)] = struct{}{}
	}
	return set
}

// HasScopes reports whether ctx carries every scope in required. Session
// actors implicitly carry every scope (spec.md §4.5); PAT/delegated actors
// must hold each one explicitly.
func HasScopes(ctx *Context, required ...string) bool {
	if ctx == nil {
		return false
	}
	if ctx.Mode == ModeSession {
		return true
	}
	for _, req := range required {
		if _, ok := ctx.Scopes[req]; !ok {
			return false
		}
	}
	return true
}

// AuthResult is the outcome of an Authorize call.
type AuthResult struct {
	OK         bool
	HTTPStatus int
	Code       apperrors.Code
	Message    string
}

// Authorize checks that ctx may act with scope on a resource owned by
// ownerUID, honoring the allow_staff escape hatch (spec.md §4.5). For
// delegated agents, the caller must additionally confirm the delegation
// grants the scope for that specific resource owner — this function
// enforces the scope+ownership rule; resource-level delegation grants are
// validated by the caller against its own delegation store.
func Authorize(ctx *Context, ownerUID, scope, resource string, allowStaff bool) AuthResult {
	if ctx == nil {
		return AuthResult{OK: false, HTTPStatus: http.StatusUnauthorized, Code: apperrors.CodeUnauthenticated, Message: "no actor context"}
	}
	if allowStaff && ctx.IsStaff {
		return AuthResult{OK: true}
	}
	if !HasScopes(ctx, scope) {
		return AuthResult{OK: false, HTTPStatus: http.StatusForbidden, Code: apperrors.CodeForbidden,
			Message: fmt.Sprintf("missing scope %q for %s", scope, resource)}
	}
	if ctx.Mode != ModeSession && ctx.UID != ownerUID {
		return AuthResult{OK: false, HTTPStatus: http.StatusForbidden, Code: apperrors.CodeForbidden,
			Message: "delegation does not cover this resource owner"}
	}
	if ctx.Mode == ModeSession && ctx.UID != ownerUID && !ctx.IsStaff {
		return AuthResult{OK: false, HTTPStatus: http.StatusForbidden, Code: apperrors.CodeForbidden,
			Message: "not the resource owner"}
	}
	return AuthResult{OK: true}
}

// SecureCompareToken does a constant-time comparison, used by staff-only
// shared-secret checks (e.g. rotating arrival tokens from a trusted job).
func SecureCompareToken(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// IssueSessionToken mints a bearer JWT for the given uid/scopes, used by
// integration tests and local tooling; production session issuance is an
// external identity-provider collaborator (spec.md §1 Non-goals).
func IssueSessionToken(secret []byte, uid string, scopes []string, staff bool, ttl time.Duration) (string, time.Time, error) {
	expires := time.Now().Add(ttl)
	claims := Claims{
		UID:    uid,
		Scopes: scopes,
		Staff:  staff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "monsoonfire-portal",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}
