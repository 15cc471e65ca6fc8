package persistence

import (
	"context"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

const (
	auditPageLimit    = 50
	maxAuditPageLimit = 500
)

type AuditPGStore struct {
	q queryExecer
}

func NewAuditPGStore(q queryExecer) ports.AuditStore {
	return &AuditPGStore{q: q}
}

func (s *AuditPGStore) Append(ctx context.Context, entry types.AuditEntry) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO access.audit_log
  (id, tenant_id, actor_user_id, action, resource_type, resource_id, old_value, new_value, created_at)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8, $9);
`, entry.ID, entry.TenantID, entry.ActorUserID, entry.Action, entry.ResourceType, entry.ResourceID, entry.OldValue, entry.NewValue, entry.CreatedAt)
	return err
}

// ListEntries pages newest-first. Entry IDs are UUIDv7, so keyset pagination
// on id alone preserves creation order.
func (s *AuditPGStore) ListEntries(ctx context.Context, tenantID string, limit int, cursor string) ([]types.AuditEntry, string, error) {
	if limit <= 0 {
		limit = auditPageLimit
	} else if limit > maxAuditPageLimit {
		limit = maxAuditPageLimit
	}

	query := `
SELECT id::text, tenant_id::text, actor_user_id::text, action, resource_type, resource_id, old_value, new_value, created_at
FROM access.audit_log
WHERE tenant_id = $1
ORDER BY id DESC
LIMIT $2;
`
	args := []any{tenantID, limit + 1}
	if cursor != "" {
		query = `
SELECT id::text, tenant_id::text, actor_user_id::text, action, resource_type, resource_id, old_value, new_value, created_at
FROM access.audit_log
WHERE tenant_id = $1 AND id < $3::uuid
ORDER BY id DESC
LIMIT $2;
`
		args = append(args, cursor)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorUserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, "", err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		next = entries[len(entries)-1].ID
	}
	return entries, next, nil
}
