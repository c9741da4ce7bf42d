package handle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens. The subject names the caller.
type Claims struct {
	Role core.Role `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	Subject string
	Role    core.Role
}

// ChangedBy is recorded in order history for writes made by this caller.
func (id Identity) ChangedBy() string {
	if id.Subject != "" {
		return id.Subject
	}
	return string(id.Role)
}

type identityKey struct{}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// GenerateToken signs an HS256 token for subject with role.
func GenerateToken(subject string, role core.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Auth resolves the caller from a bearer token, or from the token query
// parameter for websocket clients that cannot set headers.
type Auth struct {
	secret         []byte
	allowAnonymous bool
	mylog          logger.Logger
}

func NewAuth(secret string, allowAnonymous bool, mylog logger.Logger) *Auth {
	return &Auth{
		secret:         []byte(secret),
		allowAnonymous: allowAnonymous,
		mylog:          mylog,
	}
}

func (a *Auth) identify(r *http.Request) (Identity, error) {
	var tokenStr string
	if t := r.URL.Query().Get("token"); t != "" {
		tokenStr = t
	} else if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		tokenStr = strings.TrimPrefix(h, "Bearer ")
	}

	if tokenStr == "" {
		if a.allowAnonymous {
			return Identity{Role: core.RoleCustomer}, nil
		}
		return Identity{}, core.ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if !claims.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: unknown role %q", core.ErrUnauthorized, claims.Role)
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// Require admits callers holding one of roles. With no roles any identified
// caller, anonymous included when allowed, is admitted.
func (a *Auth) Require(roles ...core.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, err := a.identify(r)
			if err != nil {
				a.mylog.Action("auth_failed").Debug("Rejected request", "path", r.URL.Path, "reason", err.Error())
				jsonError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !hasRole(id.Role, roles) {
				jsonError(w, http.StatusForbidden, fmt.Errorf("%w: role %s", core.ErrForbidden, id.Role))
				return
			}

			next(w, r.WithContext(WithIdentity(r.Context(), id)))
		}
	}
}

func hasRole(role core.Role, roles []core.Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}

func identity(r *http.Request) Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}
