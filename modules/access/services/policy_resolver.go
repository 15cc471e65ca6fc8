package services

import (
	"context"
	"errors"
	"time"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// DefaultModeTTL bounds how long a cached isolation mode may be served.
const DefaultModeTTL = 5 * time.Second

// PolicyResolver answers which isolation mode currently governs a tenant.
// With a cache configured, reads go through it with a short TTL; a mode
// change invalidates the entry synchronously, so the only staleness window
// is the TTL itself on processes that did not perform the change.
type PolicyResolver struct {
	tenants ports.TenantStore
	cache   ports.ModeCache
	ttl     time.Duration
}

func NewPolicyResolver(tenants ports.TenantStore, cache ports.ModeCache, ttl time.Duration) *PolicyResolver {
	if ttl <= 0 || ttl > DefaultModeTTL {
		ttl = DefaultModeTTL
	}
	return &PolicyResolver{tenants: tenants, cache: cache, ttl: ttl}
}

// ModeFor returns the isolation mode for an already-resolved tenant. An
// unset mode reads as collaborative; any other unrecognized value is
// returned verbatim so the evaluator can fail closed on it.
func (r *PolicyResolver) ModeFor(ctx context.Context, tenant types.Tenant) (types.IsolationMode, error) {
	if r.cache != nil {
		if mode, ok, err := r.cache.Get(ctx, tenant.ID); err == nil && ok {
			return mode, nil
		}
		// A cache read failure is not a reason to deny; fall through to the
		// authoritative store value.
	}

	mode := tenant.Mode()

	if r.cache != nil {
		_ = r.cache.Set(ctx, tenant.ID, mode, r.ttl)
	}
	return mode, nil
}

// ModeForID is the uncached-context variant used by administrative tooling:
// it looks the tenant up first.
func (r *PolicyResolver) ModeForID(ctx context.Context, tenantID string) (types.IsolationMode, error) {
	t, err := r.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ports.ErrTenantNotFound) {
			return "", ErrTenantNotFound
		}
		return "", err
	}
	return r.ModeFor(ctx, t)
}

// Invalidate drops the cached mode for tenantID. Called after a mode change
// commits and before the change is reported to the caller.
func (r *PolicyResolver) Invalidate(ctx context.Context, tenantID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, tenantID)
}
