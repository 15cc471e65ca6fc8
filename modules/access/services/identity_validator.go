package services

import (
	"context"
	"errors"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

var (
	ErrTenantNotFound = errors.New("access: tenant not found")
	ErrTenantInactive = errors.New("access: tenant inactive")
	ErrUserNotFound   = errors.New("access: user not found")
	ErrUserInactive   = errors.New("access: user inactive")

	// ErrTenantMismatch means the user exists but belongs to a different
	// tenant than the context claims. Evaluation treats it exactly like
	// ErrUserNotFound so callers learn nothing about the user's real tenant.
	ErrTenantMismatch = errors.New("access: user tenant mismatch")
)

// IdentityValidator re-checks existence and activity of the identities named
// by a SecurityContext on every call. It never trusts a previously cached
// validity result.
type IdentityValidator struct {
	tenants ports.TenantStore
	users   ports.UserStore
}

func NewIdentityValidator(tenants ports.TenantStore, users ports.UserStore) *IdentityValidator {
	return &IdentityValidator{tenants: tenants, users: users}
}

func (v *IdentityValidator) ResolveTenant(ctx context.Context, tenantID string) (types.Tenant, error) {
	t, err := v.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ports.ErrTenantNotFound) {
			return types.Tenant{}, ErrTenantNotFound
		}
		return types.Tenant{}, err
	}
	if !t.Active {
		return types.Tenant{}, ErrTenantInactive
	}
	return t, nil
}

// ResolveUser resolves userID against the tenant supplied in the same
// context, never against the user's own tenant.
func (v *IdentityValidator) ResolveUser(ctx context.Context, userID string, tenantID string) (types.User, error) {
	u, err := v.users.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	if u.TenantID != tenantID {
		return types.User{}, ErrTenantMismatch
	}
	if !u.Active {
		return types.User{}, ErrUserInactive
	}
	return u, nil
}

// IsResolutionFailure reports whether err is one of the identity-resolution
// outcomes rather than a store failure.
func IsResolutionFailure(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrTenantInactive) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrUserInactive) ||
		errors.Is(err, ErrTenantMismatch)
}
