package adminauthz

import (
	"errors"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

// Objects and actions of the engine's administrative surface.
const (
	ObjectIsolationMode = "tenant/isolation_mode"
	ObjectAuditLog      = "tenant/audit_log"

	ActionUpdate = "update"
	ActionList   = "list"
)

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

// ModeFromEnv reads TENANTGATE_AUTHZ_MODE. Disabling the gate outright is an
// explicit two-variable decision, never an accident.
func ModeFromEnv() (Mode, error) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv("TENANTGATE_AUTHZ_MODE")))
	if raw == "" {
		return ModeEnforce, nil
	}
	switch Mode(raw) {
	case ModeEnforce, ModeShadow:
		return Mode(raw), nil
	case ModeDisabled:
		if os.Getenv("TENANTGATE_AUTHZ_UNSAFE_ALLOW_DISABLED") != "1" {
			return "", errors.New("adminauthz: TENANTGATE_AUTHZ_MODE=disabled requires TENANTGATE_AUTHZ_UNSAFE_ALLOW_DISABLED=1")
		}
		return ModeDisabled, nil
	default:
		return "", errors.New("adminauthz: invalid TENANTGATE_AUTHZ_MODE (expected enforce|shadow|disabled)")
	}
}

// Authorizer is the casbin-backed capability gate for administrative calls.
// In shadow mode it evaluates but never enforces, so a new policy file can be
// proven against live traffic before it starts rejecting anyone.
type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
}

func NewAuthorizer(modelPath string, policyPath string, mode Mode) (*Authorizer, error) {
	enforcer, err := casbin.NewEnforcer(modelPath)
	if err != nil {
		return nil, err
	}
	enforcer.SetAdapter(fileadapter.NewAdapter(policyPath))
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return &Authorizer{enforcer: enforcer, mode: mode}, nil
}

func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

func DomainFromTenantID(tenantID string) string {
	return strings.ToLower(strings.TrimSpace(tenantID))
}

func (a *Authorizer) Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error) {
	switch a.mode {
	case ModeDisabled:
		return true, false, nil
	case ModeShadow, ModeEnforce:
		ok, err := a.enforcer.Enforce(subject, domain, object, action)
		if err != nil {
			return false, a.mode == ModeEnforce, err
		}
		return ok, a.mode == ModeEnforce, nil
	default:
		return false, false, errors.New("adminauthz: unknown mode")
	}
}
