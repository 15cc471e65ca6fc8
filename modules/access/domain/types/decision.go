package types

type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

func (op Operation) Valid() bool {
	return op == OperationRead || op == OperationWrite
}

type DenyReason string

const (
	DenyNoContext        DenyReason = "no_context"
	DenyInvalidContext   DenyReason = "invalid_context"
	DenyCrossTenant      DenyReason = "cross_tenant"
	DenyIsolated         DenyReason = "isolated"
	DenyNotPublished     DenyReason = "not_published"
	DenyRoleInsufficient DenyReason = "role_insufficient"
	DenyUnknownMode      DenyReason = "unknown_mode"
	DenyGuardRule        DenyReason = "guard_rule"
)

// Decision is the terminal outcome of one access evaluation. Denial is a
// normal return value, not an error.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// SecurityContext carries the authenticated identity pair for one operation.
// Empty fields mean the caller is unscoped; every evaluation against such a
// context denies. The zero value is a valid, fully-unscoped context.
type SecurityContext struct {
	TenantID string
	UserID   string
}

func NewSecurityContext(tenantID string, userID string) SecurityContext {
	return SecurityContext{TenantID: tenantID, UserID: userID}
}

func (c SecurityContext) Complete() bool {
	return c.TenantID != "" && c.UserID != ""
}

// ResourceDescriptor is the caller-supplied view of a protected object. The
// engine never persists it. Published is meaningful only under role_based
// isolation.
type ResourceDescriptor struct {
	ResourceType string
	ResourceID   string
	OwnerID      string
	TenantID     string
	Published    bool
}
