// Package ledger is the boundary with the host runtime: who is calling, whether
// they may create records, and what time it is.
package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	dErrors "ledgerreg/pkg/domain-errors"
	"ledgerreg/pkg/requestcontext"
)

// Origin describes the caller of a state-changing operation. A nil Signer means
// the call is anonymous.
type Origin struct {
	Signer *domain.Account
	Roles  []string
}

// Signed builds the origin of an authenticated call.
func Signed(signer domain.Account, roles ...string) Origin {
	return Origin{Signer: &signer, Roles: roles}
}

// None is the origin of an unsigned call.
func None() Origin {
	return Origin{}
}

// OriginFromContext reads the signer the auth middleware stored in ctx.
func OriginFromContext(ctx context.Context) Origin {
	signer, ok := requestcontext.Signer(ctx)
	if !ok {
		return Origin{Roles: requestcontext.Roles(ctx)}
	}
	return Signed(signer, requestcontext.Roles(ctx)...)
}

// HasRole reports whether the origin was granted role.
func (o Origin) HasRole(role string) bool {
	return slices.Contains(o.Roles, role)
}

// EnsureSigned returns the concrete signer of the call.
func EnsureSigned(origin Origin) (domain.Account, error) {
	if origin.Signer == nil || origin.Signer.IsZero() {
		return domain.Account{}, dErrors.Wrap(models.ErrNoSigner, dErrors.CodeUnauthorized, "signed origin required")
	}
	return *origin.Signer, nil
}

// Authorizer decides whether an origin holds the "may create records" capability.
type Authorizer interface {
	EnsureAuthorized(ctx context.Context, origin Origin) error
}

// RoleAuthorizer admits origins carrying a role or signed by an allowlisted account.
type RoleAuthorizer struct {
	role     string
	accounts map[domain.Account]struct{}
}

// NewRoleAuthorizer builds a RoleAuthorizer. An empty role disables role checks.
func NewRoleAuthorizer(role string, accounts ...domain.Account) *RoleAuthorizer {
	allow := make(map[domain.Account]struct{}, len(accounts))
	for _, a := range accounts {
		allow[a] = struct{}{}
	}
	return &RoleAuthorizer{role: role, accounts: allow}
}

func (a *RoleAuthorizer) EnsureAuthorized(_ context.Context, origin Origin) error {
	if a.role != "" && origin.HasRole(a.role) {
		return nil
	}
	if origin.Signer != nil {
		if _, ok := a.accounts[*origin.Signer]; ok {
			return nil
		}
	}
	return dErrors.Wrap(models.ErrUnauthorized, dErrors.CodeForbidden, "origin lacks the registrar capability")
}

// AllowAll grants the capability to every origin, signed or not. Signer checks
// still apply after it.
type AllowAll struct{}

func (AllowAll) EnsureAuthorized(context.Context, Origin) error {
	return nil
}

// Clock is the ledger time oracle. It is read once per call.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func(ctx context.Context) time.Time

func (f ClockFunc) Now(ctx context.Context) time.Time {
	return f(ctx)
}

// RequestClock reads the request-scoped time set by middleware.
var RequestClock = ClockFunc(requestcontext.Now)

// MonotonicClock never reports a time earlier than one it already reported.
type MonotonicClock struct {
	mu     sync.Mutex
	source Clock
	last   time.Time
}

func NewMonotonicClock(source Clock) *MonotonicClock {
	return &MonotonicClock{source: source}
}

func (c *MonotonicClock) Now(ctx context.Context) time.Time {
	now := c.source.Now(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
