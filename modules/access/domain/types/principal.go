package types

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleAuthor Role = "author"
	RoleViewer Role = "viewer"
)

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	case RoleAuthor:
		return RoleAuthor, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

type Tenant struct {
	ID            string
	IsolationMode IsolationMode
	Active        bool
	UpdatedAt     time.Time
}

// Mode returns the tenant's isolation mode with the legacy-empty fallback
// applied.
func (t Tenant) Mode() IsolationMode {
	return NormalizeIsolationMode(string(t.IsolationMode))
}

type User struct {
	ID       string
	TenantID string
	Role     Role
	Active   bool
}
