package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
	"github.com/jacksonlee411/tenantgate/modules/access/infrastructure/persistence"
)

const (
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"

	adminZ  = "aaaaaaaa-0000-0000-0000-000000000001"
	editorB = "aaaaaaaa-0000-0000-0000-000000000002"
	authorA = "aaaaaaaa-0000-0000-0000-000000000003"
	viewerV = "aaaaaaaa-0000-0000-0000-000000000004"
	authorW = "aaaaaaaa-0000-0000-0000-000000000005"
)

func seededStore(t *testing.T, mode types.IsolationMode) *persistence.MemoryStore {
	t.Helper()
	store := persistence.NewMemoryStore()
	store.SeedTenant(types.Tenant{ID: tenantA, IsolationMode: mode, Active: true, UpdatedAt: time.Now()})
	store.SeedTenant(types.Tenant{ID: tenantB, IsolationMode: types.IsolationCollaborative, Active: true, UpdatedAt: time.Now()})
	store.SeedUser(types.User{ID: adminZ, TenantID: tenantA, Role: types.RoleAdmin, Active: true})
	store.SeedUser(types.User{ID: editorB, TenantID: tenantA, Role: types.RoleEditor, Active: true})
	store.SeedUser(types.User{ID: authorA, TenantID: tenantA, Role: types.RoleAuthor, Active: true})
	store.SeedUser(types.User{ID: viewerV, TenantID: tenantA, Role: types.RoleViewer, Active: true})
	store.SeedUser(types.User{ID: authorW, TenantID: tenantA, Role: types.RoleAuthor, Active: true})
	return store
}

func evaluatorFor(store *persistence.MemoryStore) *Evaluator {
	ids := NewIdentityValidator(store, store)
	resolver := NewPolicyResolver(store, nil, 0)
	return NewEvaluator(ids, resolver)
}

func contentOf(owner string) types.ResourceDescriptor {
	return types.ResourceDescriptor{
		ResourceType: "content",
		ResourceID:   "c1",
		OwnerID:      owner,
		TenantID:     tenantA,
	}
}

func TestCanAccess_NoContextDeniesEverything(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationCollaborative))

	tests := []types.SecurityContext{
		{},
		{TenantID: tenantA},
		{UserID: editorB},
	}
	for _, sctx := range tests {
		for _, op := range []types.Operation{types.OperationRead, types.OperationWrite} {
			d, err := e.CanAccess(context.Background(), sctx, contentOf(authorA), op)
			if err != nil {
				t.Fatalf("sctx=%+v err=%v", sctx, err)
			}
			if d.Allowed || d.Reason != types.DenyNoContext {
				t.Fatalf("sctx=%+v op=%s decision=%+v", sctx, op, d)
			}
		}
	}
}

func TestCanAccess_InvalidContext(t *testing.T) {
	store := seededStore(t, types.IsolationCollaborative)
	store.SeedTenant(types.Tenant{ID: "33333333-3333-3333-3333-333333333333", Active: false, UpdatedAt: time.Now()})
	store.SeedUser(types.User{ID: "inactive-user", TenantID: tenantA, Role: types.RoleEditor, Active: false})
	store.SeedUser(types.User{ID: "tenant-b-user", TenantID: tenantB, Role: types.RoleAdmin, Active: true})
	e := evaluatorFor(store)

	tests := []struct {
		name string
		sctx types.SecurityContext
	}{
		{name: "unknown tenant", sctx: types.SecurityContext{TenantID: "no-such-tenant", UserID: editorB}},
		{name: "inactive tenant", sctx: types.SecurityContext{TenantID: "33333333-3333-3333-3333-333333333333", UserID: editorB}},
		{name: "unknown user", sctx: types.SecurityContext{TenantID: tenantA, UserID: "no-such-user"}},
		{name: "inactive user", sctx: types.SecurityContext{TenantID: tenantA, UserID: "inactive-user"}},
		{name: "tenant mismatch", sctx: types.SecurityContext{TenantID: tenantA, UserID: "tenant-b-user"}},
	}
	for _, tt := range tests {
		d, err := e.CanAccess(context.Background(), tt.sctx, contentOf(authorA), types.OperationRead)
		if err != nil {
			t.Fatalf("%s: err=%v", tt.name, err)
		}
		if d.Allowed || d.Reason != types.DenyInvalidContext {
			t.Fatalf("%s: decision=%+v", tt.name, d)
		}
	}
}

func TestCanAccess_CrossTenantDeniedInEveryMode(t *testing.T) {
	for _, mode := range []types.IsolationMode{types.IsolationCollaborative, types.IsolationIsolated, types.IsolationRoleBased} {
		e := evaluatorFor(seededStore(t, mode))

		resource := types.ResourceDescriptor{
			ResourceType: "content",
			ResourceID:   "c9",
			OwnerID:      adminZ, // even "ownership" does not cross tenants
			TenantID:     tenantB,
			Published:    true,
		}
		for _, op := range []types.Operation{types.OperationRead, types.OperationWrite} {
			d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, adminZ), resource, op)
			if err != nil {
				t.Fatalf("mode=%s err=%v", mode, err)
			}
			if d.Allowed || d.Reason != types.DenyCrossTenant {
				t.Fatalf("mode=%s op=%s decision=%+v", mode, op, d)
			}
		}
	}
}

func TestCanAccess_OwnershipWinsInEveryMode(t *testing.T) {
	for _, mode := range []types.IsolationMode{types.IsolationCollaborative, types.IsolationIsolated, types.IsolationRoleBased} {
		e := evaluatorFor(seededStore(t, mode))

		for _, op := range []types.Operation{types.OperationRead, types.OperationWrite} {
			d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, viewerV), contentOf(viewerV), op)
			if err != nil {
				t.Fatalf("mode=%s err=%v", mode, err)
			}
			if !d.Allowed {
				t.Fatalf("mode=%s op=%s decision=%+v", mode, op, d)
			}
		}
	}
}

func TestCanAccess_CollaborativeMode(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationCollaborative))

	for _, user := range []string{adminZ, editorB, authorA, viewerV} {
		for _, op := range []types.Operation{types.OperationRead, types.OperationWrite} {
			d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, user), contentOf(authorA), op)
			if err != nil {
				t.Fatalf("user=%s err=%v", user, err)
			}
			if !d.Allowed {
				t.Fatalf("user=%s op=%s decision=%+v", user, op, d)
			}
		}
	}
}

func TestCanAccess_IsolatedMode(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationIsolated))

	d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, editorB), contentOf(authorA), types.OperationRead)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.Allowed || d.Reason != types.DenyIsolated {
		t.Fatalf("editor decision=%+v", d)
	}

	d, err = e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, adminZ), contentOf(authorA), types.OperationRead)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !d.Allowed {
		t.Fatalf("admin decision=%+v", d)
	}
}

func TestCanAccess_RoleBasedMode(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationRoleBased))
	ctx := context.Background()

	unpublished := contentOf(authorA)
	published := contentOf(authorA)
	published.Published = true

	tests := []struct {
		name     string
		user     string
		resource types.ResourceDescriptor
		op       types.Operation
		allowed  bool
		reason   types.DenyReason
	}{
		{name: "admin unpublished", user: adminZ, resource: unpublished, op: types.OperationWrite, allowed: true},
		{name: "editor unpublished write", user: editorB, resource: unpublished, op: types.OperationWrite, reason: types.DenyNotPublished},
		{name: "editor unpublished read", user: editorB, resource: unpublished, op: types.OperationRead, reason: types.DenyNotPublished},
		{name: "editor published write", user: editorB, resource: published, op: types.OperationWrite, allowed: true},
		{name: "editor published read", user: editorB, resource: published, op: types.OperationRead, allowed: true},
		{name: "author published", user: authorW, resource: published, op: types.OperationRead, reason: types.DenyRoleInsufficient},
		{name: "viewer published", user: viewerV, resource: published, op: types.OperationWrite, reason: types.DenyRoleInsufficient},
	}
	for _, tt := range tests {
		d, err := e.CanAccess(ctx, types.NewSecurityContext(tenantA, tt.user), tt.resource, tt.op)
		if err != nil {
			t.Fatalf("%s: err=%v", tt.name, err)
		}
		if d.Allowed != tt.allowed {
			t.Fatalf("%s: decision=%+v", tt.name, d)
		}
		if !tt.allowed && d.Reason != tt.reason {
			t.Fatalf("%s: reason=%q want %q", tt.name, d.Reason, tt.reason)
		}
	}
}

func TestCanAccess_UnknownModeFailsClosed(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationMode("experimental")))

	d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, adminZ), contentOf(authorA), types.OperationRead)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.Allowed || d.Reason != types.DenyUnknownMode {
		t.Fatalf("decision=%+v", d)
	}
}

func TestCanAccess_UnsetModeReadsAsCollaborative(t *testing.T) {
	e := evaluatorFor(seededStore(t, ""))

	d, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, viewerV), contentOf(authorA), types.OperationRead)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !d.Allowed {
		t.Fatalf("decision=%+v", d)
	}
}

func TestCanAccess_InvalidOperation(t *testing.T) {
	e := evaluatorFor(seededStore(t, types.IsolationCollaborative))

	if _, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, adminZ), contentOf(authorA), types.Operation("delete")); !errors.Is(err, ErrBadOperation) {
		t.Fatalf("err=%v", err)
	}
}

type failingTenantStore struct{ err error }

func (f failingTenantStore) FindTenant(context.Context, string) (types.Tenant, error) {
	return types.Tenant{}, f.err
}

func (f failingTenantStore) SwapIsolationMode(context.Context, string, time.Time, types.IsolationMode, types.AuditEntry) (types.Tenant, error) {
	return types.Tenant{}, f.err
}

func TestCanAccess_StoreFailureIsNotADenial(t *testing.T) {
	boom := errors.New("pg down")
	store := seededStore(t, types.IsolationCollaborative)
	ids := NewIdentityValidator(failingTenantStore{err: boom}, store)
	e := NewEvaluator(ids, NewPolicyResolver(store, nil, 0))

	_, err := e.CanAccess(context.Background(), types.NewSecurityContext(tenantA, editorB), contentOf(authorA), types.OperationRead)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

type countingObserver struct {
	allow int
	deny  map[types.DenyReason]int
}

func (c *countingObserver) ObserveDecision(_ types.Operation, d types.Decision) {
	if d.Allowed {
		c.allow++
		return
	}
	if c.deny == nil {
		c.deny = map[types.DenyReason]int{}
	}
	c.deny[d.Reason]++
}

func TestCanAccess_ObserverSeesEveryDecisionOnce(t *testing.T) {
	obs := &countingObserver{}
	e := evaluatorFor(seededStore(t, types.IsolationIsolated)).WithObserver(obs)
	ctx := context.Background()

	if _, err := e.CanAccess(ctx, types.NewSecurityContext(tenantA, adminZ), contentOf(authorA), types.OperationRead); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.CanAccess(ctx, types.NewSecurityContext(tenantA, editorB), contentOf(authorA), types.OperationRead); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := e.CanAccess(ctx, types.SecurityContext{}, contentOf(authorA), types.OperationRead); err != nil {
		t.Fatalf("err=%v", err)
	}

	if obs.allow != 1 {
		t.Fatalf("allow=%d", obs.allow)
	}
	if obs.deny[types.DenyIsolated] != 1 || obs.deny[types.DenyNoContext] != 1 {
		t.Fatalf("deny=%v", obs.deny)
	}
}

var _ ports.TenantStore = failingTenantStore{}
