package types

import "strings"

type GuardRuleEngine string

const (
	GuardEngineCEL  GuardRuleEngine = "cel"
	GuardEngineRego GuardRuleEngine = "rego"
)

func ParseGuardRuleEngine(raw string) (GuardRuleEngine, bool) {
	switch GuardRuleEngine(strings.ToLower(strings.TrimSpace(raw))) {
	case GuardEngineCEL:
		return GuardEngineCEL, true
	case GuardEngineRego:
		return GuardEngineRego, true
	default:
		return "", false
	}
}

// GuardRule is a tenant-authored restriction evaluated after the base
// algorithm allows a non-owner access. A rule that matches converts the
// allow into a denial; rules can never grant.
//
// CEL rules evaluate Expr against a string-map variable `ctx` and deny on
// true. Rego rules are a module defining `deny` under package guard; any
// true result denies.
type GuardRule struct {
	ID       string
	TenantID string
	Engine   GuardRuleEngine
	Expr     string
	Disabled bool
}
