package ports

import (
	"context"
	"errors"
	"time"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

var (
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrUserNotFound   = errors.New("user_not_found")
	ErrModeConflict   = errors.New("isolation_mode_conflict")
)

type TenantStore interface {
	FindTenant(ctx context.Context, tenantID string) (types.Tenant, error)

	// SwapIsolationMode performs the read-compare-write of a mode change and
	// the audit append as one atomic unit. expectedUpdatedAt is the
	// optimistic-concurrency token read by the caller; a stale token fails
	// with ErrModeConflict and writes nothing.
	SwapIsolationMode(ctx context.Context, tenantID string, expectedUpdatedAt time.Time, newMode types.IsolationMode, entry types.AuditEntry) (types.Tenant, error)
}

type UserStore interface {
	FindUser(ctx context.Context, userID string) (types.User, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry types.AuditEntry) error

	// ListEntries returns newest-first entries for one tenant. cursor is the
	// ID of the last entry from the previous page, empty for the first page.
	// The returned cursor is empty when no further page exists.
	ListEntries(ctx context.Context, tenantID string, limit int, cursor string) ([]types.AuditEntry, string, error)
}

// ModeCache is the optional read-through cache in front of tenant isolation
// modes. Implementations must honor synchronous invalidation: after
// Invalidate returns, a Get for that tenant misses.
type ModeCache interface {
	Get(ctx context.Context, tenantID string) (types.IsolationMode, bool, error)
	Set(ctx context.Context, tenantID string, mode types.IsolationMode, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID string) error
}

// GuardRuleSource supplies the deny-only custom rules for a tenant, if any.
type GuardRuleSource interface {
	RulesFor(ctx context.Context, tenantID string) ([]types.GuardRule, error)
}
