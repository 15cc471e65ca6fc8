package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
	"github.com/jacksonlee411/tenantgate/pkg/adminauthz"
)

var (
	ErrInvalidContext = errors.New("access: invalid security context")
	ErrAuthorization  = errors.New("access: administration requires admin role")
	ErrValidation     = errors.New("access: invalid isolation mode")

	// ErrConflict is the optimistic-concurrency outcome of two admins racing
	// a mode change on the same tenant. The caller may retry with backoff.
	ErrConflict = errors.New("access: concurrent isolation mode change")
)

// Administrator performs the gated mutations of the engine. Today that is
// exactly one operation: changing a tenant's isolation mode.
type Administrator struct {
	ids     *IdentityValidator
	modes   *PolicyResolver
	tenants ports.TenantStore
	authz   *adminauthz.Authorizer

	now   func() time.Time
	newID func() (string, error)
}

func NewAdministrator(ids *IdentityValidator, modes *PolicyResolver, tenants ports.TenantStore) *Administrator {
	return &Administrator{
		ids:     ids,
		modes:   modes,
		tenants: tenants,
		now:     time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// WithAuthorizer layers the casbin capability gate over the role check. The
// explicit admin-role requirement below stays authoritative either way.
func (a *Administrator) WithAuthorizer(authz *adminauthz.Authorizer) *Administrator {
	a.authz = authz
	return a
}

// SetIsolationMode changes the context tenant's isolation mode and appends
// exactly one audit entry, atomically. Validation failures are idempotent
// rejections: the tenant row and the audit log are untouched.
func (a *Administrator) SetIsolationMode(ctx context.Context, sctx types.SecurityContext, rawMode string) (types.AuditEntry, error) {
	if !sctx.Complete() {
		return types.AuditEntry{}, ErrInvalidContext
	}
	tenant, err := a.ids.ResolveTenant(ctx, sctx.TenantID)
	if err != nil {
		if IsResolutionFailure(err) {
			return types.AuditEntry{}, ErrInvalidContext
		}
		return types.AuditEntry{}, err
	}
	user, err := a.ids.ResolveUser(ctx, sctx.UserID, sctx.TenantID)
	if err != nil {
		if IsResolutionFailure(err) {
			return types.AuditEntry{}, ErrInvalidContext
		}
		return types.AuditEntry{}, err
	}

	// Administration is admin-gated regardless of the current isolation
	// mode; collaborative tenants do not get collaborative administration.
	if user.Role != types.RoleAdmin {
		return types.AuditEntry{}, ErrAuthorization
	}
	if a.authz != nil {
		allowed, enforced, err := a.authz.Authorize(
			adminauthz.SubjectFromRole(string(user.Role)),
			adminauthz.DomainFromTenantID(sctx.TenantID),
			adminauthz.ObjectIsolationMode,
			adminauthz.ActionUpdate,
		)
		if err != nil {
			return types.AuditEntry{}, err
		}
		if enforced && !allowed {
			return types.AuditEntry{}, ErrAuthorization
		}
	}

	newMode, ok := types.ParseIsolationMode(rawMode)
	if !ok {
		return types.AuditEntry{}, ErrValidation
	}

	id, err := a.newID()
	if err != nil {
		return types.AuditEntry{}, err
	}
	oldMode := tenant.Mode()
	entry := types.AuditEntry{
		ID:           id,
		TenantID:     tenant.ID,
		ActorUserID:  user.ID,
		Action:       types.AuditActionIsolationModeChange,
		ResourceType: "tenant",
		ResourceID:   tenant.ID,
		OldValue:     string(oldMode),
		NewValue:     string(newMode),
		CreatedAt:    a.now().UTC(),
	}

	if _, err := a.tenants.SwapIsolationMode(ctx, tenant.ID, tenant.UpdatedAt, newMode, entry); err != nil {
		if errors.Is(err, ports.ErrModeConflict) {
			return types.AuditEntry{}, ErrConflict
		}
		return types.AuditEntry{}, err
	}

	// Invalidate after the durable write commits and before returning, so
	// the staleness window closes with this call.
	if err := a.modes.Invalidate(ctx, tenant.ID); err != nil {
		return types.AuditEntry{}, err
	}
	return entry, nil
}
