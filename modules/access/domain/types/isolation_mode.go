package types

import "strings"

type IsolationMode string

const (
	IsolationCollaborative IsolationMode = "collaborative"
	IsolationIsolated      IsolationMode = "isolated"
	IsolationRoleBased     IsolationMode = "role_based"
)

// ParseIsolationMode accepts only the three defined modes. It never maps an
// unknown value onto a default; callers that need the legacy-empty fallback
// use NormalizeIsolationMode instead.
func ParseIsolationMode(raw string) (IsolationMode, bool) {
	switch IsolationMode(strings.ToLower(strings.TrimSpace(raw))) {
	case IsolationCollaborative:
		return IsolationCollaborative, true
	case IsolationIsolated:
		return IsolationIsolated, true
	case IsolationRoleBased:
		return IsolationRoleBased, true
	default:
		return "", false
	}
}

// NormalizeIsolationMode maps an unset mode (legacy tenants created before the
// column existed) to collaborative, the tenant-creation default. Any other
// unknown value is passed through untouched so evaluation fails closed on it.
func NormalizeIsolationMode(raw string) IsolationMode {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return IsolationCollaborative
	}
	return IsolationMode(strings.ToLower(trimmed))
}

func (m IsolationMode) Valid() bool {
	switch m {
	case IsolationCollaborative, IsolationIsolated, IsolationRoleBased:
		return true
	default:
		return false
	}
}
