package services

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
)

// GuardEvaluator runs tenant-authored deny-only rules. It is consulted only
// after the base algorithm has allowed a non-owner access, so rules can
// narrow access but never widen it. A rule that fails to compile or evaluate
// counts as a match: a broken rule denies rather than silently vanishing.
type GuardEvaluator struct {
	source ports.GuardRuleSource

	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error

	celPrograms  sync.Map // expr -> cel.Program
	regoPrepared sync.Map // expr -> rego.PreparedEvalQuery
}

func NewGuardEvaluator(source ports.GuardRuleSource) *GuardEvaluator {
	return &GuardEvaluator{source: source}
}

// Denies reports whether any enabled rule of the context tenant matches the
// pending access. The returned error is reserved for rule-source failures.
func (g *GuardEvaluator) Denies(ctx context.Context, sctx types.SecurityContext, user types.User, resource types.ResourceDescriptor, op types.Operation) (bool, error) {
	rules, err := g.source.RulesFor(ctx, sctx.TenantID)
	if err != nil {
		return false, err
	}
	if len(rules) == 0 {
		return false, nil
	}

	input := guardInput(sctx, user, resource, op)
	for _, rule := range rules {
		if rule.Disabled || rule.TenantID != sctx.TenantID {
			continue
		}
		switch rule.Engine {
		case types.GuardEngineCEL:
			if g.celDenies(rule.Expr, input) {
				return true, nil
			}
		case types.GuardEngineRego:
			if g.regoDenies(ctx, rule.Expr, input) {
				return true, nil
			}
		default:
			// Unknown engine value: fail closed.
			return true, nil
		}
	}
	return false, nil
}

func guardInput(sctx types.SecurityContext, user types.User, resource types.ResourceDescriptor, op types.Operation) map[string]string {
	published := "false"
	if resource.Published {
		published = "true"
	}
	return map[string]string{
		"tenant_id":         sctx.TenantID,
		"user_id":           sctx.UserID,
		"user_role":         string(user.Role),
		"resource_type":     resource.ResourceType,
		"resource_id":       resource.ResourceID,
		"resource_owner_id": resource.OwnerID,
		"operation":         string(op),
		"published":         published,
	}
}

func (g *GuardEvaluator) env() (*cel.Env, error) {
	g.celEnvOnce.Do(func() {
		g.celEnv, g.celEnvErr = cel.NewEnv(
			cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)),
		)
	})
	return g.celEnv, g.celEnvErr
}

func (g *GuardEvaluator) celDenies(expr string, input map[string]string) bool {
	prg, err := g.celProgram(expr)
	if err != nil {
		return true
	}
	out, _, err := prg.Eval(map[string]any{"ctx": input})
	if err != nil {
		return true
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return matched
}

func (g *GuardEvaluator) celProgram(expr string) (cel.Program, error) {
	if cached, ok := g.celPrograms.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := g.env()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	g.celPrograms.Store(expr, prg)
	return prg, nil
}

func (g *GuardEvaluator) regoDenies(ctx context.Context, module string, input map[string]string) bool {
	pq, err := g.regoQuery(ctx, module)
	if err != nil {
		return true
	}
	rs, err := pq.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return true
	}
	for _, result := range rs {
		for _, ev := range result.Expressions {
			switch v := ev.Value.(type) {
			case bool:
				if v {
					return true
				}
			case []any:
				if len(v) > 0 {
					return true
				}
			}
		}
	}
	return false
}

func (g *GuardEvaluator) regoQuery(ctx context.Context, module string) (rego.PreparedEvalQuery, error) {
	if cached, ok := g.regoPrepared.Load(module); ok {
		return cached.(rego.PreparedEvalQuery), nil
	}
	pq, err := rego.New(
		rego.Query("data.guard.deny"),
		rego.Module("guard.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, err
	}
	g.regoPrepared.Store(module, pq)
	return pq, nil
}

// StaticGuardRules is the in-memory rule source used by tests and by
// deployments that configure rules at startup.
type StaticGuardRules struct {
	mu    sync.Mutex
	rules map[string][]types.GuardRule
}

func NewStaticGuardRules() *StaticGuardRules {
	return &StaticGuardRules{rules: map[string][]types.GuardRule{}}
}

func (s *StaticGuardRules) Add(rule types.GuardRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.TenantID] = append(s.rules[rule.TenantID], rule)
}

func (s *StaticGuardRules) RulesFor(_ context.Context, tenantID string) ([]types.GuardRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.GuardRule, len(s.rules[tenantID]))
	copy(out, s.rules[tenantID])
	return out, nil
}
