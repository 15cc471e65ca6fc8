package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type queryExecer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// pgPool is the slice of *pgxpool.Pool the tenant store needs: plain reads
// plus transactions for the swap.
type pgPool interface {
	pgBeginner
	queryExecer
}

type TenantPGStore struct {
	pool pgPool
}

func NewTenantPGStore(pool pgPool) ports.TenantStore {
	return &TenantPGStore{pool: pool}
}

func (s *TenantPGStore) FindTenant(ctx context.Context, tenantID string) (types.Tenant, error) {
	var (
		t    types.Tenant
		mode string
	)
	err := s.pool.QueryRow(ctx, `
SELECT id::text, COALESCE(isolation_mode, ''), active, updated_at
FROM access.tenants
WHERE id = $1;
`, tenantID).Scan(&t.ID, &mode, &t.Active, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Tenant{}, ports.ErrTenantNotFound
		}
		return types.Tenant{}, err
	}
	t.IsolationMode = types.IsolationMode(mode)
	return t, nil
}

// SwapIsolationMode updates the tenant row and appends the audit entry in one
// transaction. The updated_at predicate is the compare-and-swap: a concurrent
// change moves updated_at, the UPDATE matches nothing, and the whole unit
// rolls back with ErrModeConflict.
func (s *TenantPGStore) SwapIsolationMode(ctx context.Context, tenantID string, expectedUpdatedAt time.Time, newMode types.IsolationMode, entry types.AuditEntry) (types.Tenant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Tenant{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return types.Tenant{}, err
	}

	var (
		t    types.Tenant
		mode string
	)
	err = tx.QueryRow(ctx, `
UPDATE access.tenants
SET isolation_mode = $2, updated_at = clock_timestamp()
WHERE id = $1 AND updated_at = $3
RETURNING id::text, isolation_mode, active, updated_at;
`, tenantID, string(newMode), expectedUpdatedAt).Scan(&t.ID, &mode, &t.Active, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Tenant{}, ports.ErrModeConflict
		}
		return types.Tenant{}, err
	}
	t.IsolationMode = types.IsolationMode(mode)

	if _, err := tx.Exec(ctx, `
INSERT INTO access.audit_log
  (id, tenant_id, actor_user_id, action, resource_type, resource_id, old_value, new_value, created_at)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8, $9);
`, entry.ID, entry.TenantID, entry.ActorUserID, entry.Action, entry.ResourceType, entry.ResourceID, entry.OldValue, entry.NewValue, entry.CreatedAt); err != nil {
		return types.Tenant{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Tenant{}, err
	}
	return t, nil
}
