package types

import "time"

const AuditActionIsolationModeChange = "isolation_mode_change"

// AuditEntry is an immutable administrative log record. The engine only ever
// appends entries; update and delete do not exist.
type AuditEntry struct {
	ID           string
	TenantID     string
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	OldValue     string
	NewValue     string
	CreatedAt    time.Time
}
