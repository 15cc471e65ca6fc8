package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// MemoryStore backs all three store ports with process-local maps. It is the
// store used by tests, the YAML directory bootstrap, and single-process dev
// setups. The audit log lives in the same struct so SwapIsolationMode can
// update mode and append the entry under one lock, matching the atomicity
// the Postgres store gets from its transaction.
type MemoryStore struct {
	mu      sync.Mutex
	tenants map[string]types.Tenant
	users   map[string]types.User
	audit   map[string][]types.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: map[string]types.Tenant{},
		users:   map[string]types.User{},
		audit:   map[string][]types.AuditEntry{},
	}
}

func (s *MemoryStore) SeedTenant(t types.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	s.tenants[t.ID] = t
}

func (s *MemoryStore) SeedUser(u types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) FindTenant(_ context.Context, tenantID string) (types.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return types.Tenant{}, ports.ErrTenantNotFound
	}
	return t, nil
}

func (s *MemoryStore) SwapIsolationMode(_ context.Context, tenantID string, expectedUpdatedAt time.Time, newMode types.IsolationMode, entry types.AuditEntry) (types.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return types.Tenant{}, ports.ErrTenantNotFound
	}
	if !t.UpdatedAt.Equal(expectedUpdatedAt) {
		return types.Tenant{}, ports.ErrModeConflict
	}

	t.IsolationMode = newMode
	t.UpdatedAt = bumpUpdatedAt(t.UpdatedAt)
	s.tenants[tenantID] = t
	s.audit[tenantID] = append([]types.AuditEntry{entry}, s.audit[tenantID]...)
	return t, nil
}

// bumpUpdatedAt guarantees the concurrency token moves even when two swaps
// land inside one clock tick.
func bumpUpdatedAt(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *MemoryStore) FindUser(_ context.Context, userID string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return types.User{}, ports.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) Append(_ context.Context, entry types.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit[entry.TenantID] = append([]types.AuditEntry{entry}, s.audit[entry.TenantID]...)
	return nil
}

func (s *MemoryStore) ListEntries(_ context.Context, tenantID string, limit int, cursor string) ([]types.AuditEntry, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.audit[tenantID]
	start := 0
	if cursor != "" {
		start = -1
		for i, e := range entries {
			if e.ID == cursor {
				start = i + 1
				break
			}
		}
		// An unknown cursor ends pagination instead of re-serving page one,
		// matching the keyset behavior of the Postgres store.
		if start < 0 {
			return nil, "", nil
		}
	}
	if limit <= 0 {
		limit = auditPageLimit
	} else if limit > maxAuditPageLimit {
		limit = maxAuditPageLimit
	}

	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	page := make([]types.AuditEntry, end-start)
	copy(page, entries[start:end])

	next := ""
	if end < len(entries) && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next, nil
}

var (
	_ ports.TenantStore = (*MemoryStore)(nil)
	_ ports.UserStore   = (*MemoryStore)(nil)
	_ ports.AuditStore  = (*MemoryStore)(nil)
)
