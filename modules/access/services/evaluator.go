package services

import (
	"context"
	"errors"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// ErrBadOperation rejects operations outside {read, write} before any lookup
// happens.
var ErrBadOperation = errors.New("access: invalid operation")

// DecisionObserver receives every terminal decision exactly once. Wired to
// the Prometheus collector in production, nil in most tests.
type DecisionObserver interface {
	ObserveDecision(op types.Operation, decision types.Decision)
}

// Evaluator is the core decision function. It is stateless between calls and
// safe for arbitrary concurrent use; the only I/O it performs are the tenant
// and user lookups of context resolution.
type Evaluator struct {
	ids      *IdentityValidator
	modes    *PolicyResolver
	guards   *GuardEvaluator
	observer DecisionObserver
}

func NewEvaluator(ids *IdentityValidator, modes *PolicyResolver) *Evaluator {
	return &Evaluator{ids: ids, modes: modes}
}

// WithGuardRules enables the deny-only tenant guard-rule layer.
func (e *Evaluator) WithGuardRules(guards *GuardEvaluator) *Evaluator {
	e.guards = guards
	return e
}

func (e *Evaluator) WithObserver(observer DecisionObserver) *Evaluator {
	e.observer = observer
	return e
}

// CanAccess decides whether the identity in sctx may perform op on resource.
// Rule precedence is fixed: missing context, invalid context, tenant
// isolation, ownership, then mode-specific role logic. A non-nil error means
// the backing store failed and the caller must fail closed; it never means
// "denied".
func (e *Evaluator) CanAccess(ctx context.Context, sctx types.SecurityContext, resource types.ResourceDescriptor, op types.Operation) (types.Decision, error) {
	if !op.Valid() {
		return types.Decision{}, ErrBadOperation
	}

	if !sctx.Complete() {
		return e.observe(op, types.Deny(types.DenyNoContext)), nil
	}

	tenant, err := e.ids.ResolveTenant(ctx, sctx.TenantID)
	if err != nil {
		if IsResolutionFailure(err) {
			return e.observe(op, types.Deny(types.DenyInvalidContext)), nil
		}
		return types.Decision{}, err
	}
	user, err := e.ids.ResolveUser(ctx, sctx.UserID, sctx.TenantID)
	if err != nil {
		if IsResolutionFailure(err) {
			return e.observe(op, types.Deny(types.DenyInvalidContext)), nil
		}
		return types.Decision{}, err
	}

	// Tenant isolation precedes everything mode-specific; no mode weakens it.
	if resource.TenantID != sctx.TenantID {
		return e.observe(op, types.Deny(types.DenyCrossTenant)), nil
	}

	// Ownership grants full access in every mode, for both operations, and
	// is never subject to guard rules.
	if resource.OwnerID != "" && resource.OwnerID == sctx.UserID {
		return e.observe(op, types.Allow()), nil
	}

	mode, err := e.modes.ModeFor(ctx, tenant)
	if err != nil {
		return types.Decision{}, err
	}

	decision := decideByMode(mode, user.Role, resource, op)
	if !decision.Allowed {
		return e.observe(op, decision), nil
	}

	if e.guards != nil {
		denied, err := e.guards.Denies(ctx, sctx, user, resource, op)
		if err != nil {
			return types.Decision{}, err
		}
		if denied {
			return e.observe(op, types.Deny(types.DenyGuardRule)), nil
		}
	}
	return e.observe(op, decision), nil
}

func decideByMode(mode types.IsolationMode, role types.Role, resource types.ResourceDescriptor, op types.Operation) types.Decision {
	switch mode {
	case types.IsolationCollaborative:
		return types.Allow()

	case types.IsolationIsolated:
		if role == types.RoleAdmin {
			return types.Allow()
		}
		return types.Deny(types.DenyIsolated)

	case types.IsolationRoleBased:
		switch role {
		case types.RoleAdmin:
			return types.Allow()
		case types.RoleEditor:
			// Published grants editors both read and write on others'
			// resources; unpublished resources stay invisible to them.
			if resource.Published {
				return types.Allow()
			}
			return types.Deny(types.DenyNotPublished)
		default:
			return types.Deny(types.DenyRoleInsufficient)
		}

	default:
		// Unrecognized mode values never default to allow.
		return types.Deny(types.DenyUnknownMode)
	}
}

func (e *Evaluator) observe(op types.Operation, d types.Decision) types.Decision {
	if e.observer != nil {
		e.observer.ObserveDecision(op, d)
	}
	return d
}
