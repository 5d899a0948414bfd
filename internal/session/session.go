// Package session carries the acting user's identity through request contexts.
package session

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/paperdesk/internal/domain"
)

// Request headers set by the gateway in front of paperdesk
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Session identifies the user on whose behalf an operation runs
type Session struct {
	Role   domain.Role `json:"role"`
	UserID int64       `json:"user_id"`
}

// IsAgent reports whether the session belongs to a commission agent
func (s Session) IsAgent() bool {
	return s.Role == domain.RoleAgent
}

// IsTrader reports whether the session belongs to a trader
func (s Session) IsTrader() bool {
	return s.Role == domain.RoleTrader
}

type contextKey struct{}

// WithSession returns a context carrying s
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session in ctx, or ErrAuthenticationMissing
func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || s.UserID <= 0 {
		return Session{}, domain.ErrAuthenticationMissing
	}
	return s, nil
}

// RequireRole returns the session only if it has the given role
func RequireRole(ctx context.Context, role domain.Role) (Session, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return Session{}, err
	}
	if s.Role != role {
		return Session{}, domain.ErrRoleNotPermitted
	}
	return s, nil
}

// FromRequest parses the identity headers. A missing or malformed user id
// yields no session; requests without one are still served and fail later
// only if the operation needs a user.
func FromRequest(r *http.Request) (Session, bool) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return Session{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Session{}, false
	}

	role := domain.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if !role.Valid() {
		role = domain.RoleTrader
	}
	return Session{UserID: id, Role: role}, true
}

// Middleware installs the session parsed from request headers
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := FromRequest(r); ok {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}
