// Package rules provides the CEL-Go based risk factor engine that scores
// one asset from its fault history.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/liftwatch/liftwatch/internal/domain"
)

// BaseScore is the score every asset starts from before factors apply.
const BaseScore = 20

// Factor is one row of the scoring table. Trigger, Weight and Description
// are CEL expressions over the scoring State and must return bool, int and
// string respectively.
type Factor struct {
	Name        string
	Kind        domain.FactorKind
	Trigger     string
	Weight      string
	Description string
}

// BuiltinFactors returns the scoring table in evaluation order.
// The weights are calibrated constants; changing one changes which assets
// are flagged critical.
func BuiltinFactors() []Factor {
	return []Factor{
		{
			Name:        "Recent fault",
			Kind:        domain.FactorRisk,
			Trigger:     `fault_count_7d > 0`,
			Weight:      `25 * fault_count_7d`,
			Description: `string(fault_count_7d) + ' fault(s) in the last 7 days'`,
		},
		{
			Name:        "Frequent faults",
			Kind:        domain.FactorRisk,
			Trigger:     `fault_count_30d >= 3`,
			Weight:      `30`,
			Description: `string(fault_count_30d) + ' faults in 30 days (threshold: 3)'`,
		},
		{
			Name:        "Recurring fault",
			Kind:        domain.FactorRisk,
			Trigger:     `recurring_count > 0`,
			Weight:      `35`,
			Description: `'"' + top_recurring_type + '" ' + string(top_recurring_count) + ' times in 90 days'`,
		},
		{
			Name:        "Out of service",
			Kind:        domain.FactorRisk,
			Trigger:     `out_of_service`,
			Weight:      `40`,
			Description: `'Asset is currently out of service'`,
		},
		{
			Name:        "No contract",
			Kind:        domain.FactorRisk,
			Trigger:     `!under_contract`,
			Weight:      `20`,
			Description: `'No maintenance contract'`,
		},
		{
			Name:        "Under contract",
			Kind:        domain.FactorProtective,
			Trigger:     `under_contract`,
			Weight:      `-15`,
			Description: `contract_plan != '' ? 'Contract: ' + contract_plan : 'Under maintenance contract'`,
		},
		{
			Name:        "No recent fault",
			Kind:        domain.FactorProtective,
			Trigger:     `fault_count_90d == 0`,
			Weight:      `-10`,
			Description: `'No fault in the last 90 days'`,
		},
		{
			Name:        "Regular maintenance",
			Kind:        domain.FactorProtective,
			Trigger:     `visit_count_90d >= 2`,
			Weight:      `-20`,
			Description: `string(visit_count_90d) + ' visits in 90 days'`,
		},
	}
}

// State is the computed per-asset state the factor table and the
// recommendation rules are evaluated against.
type State struct {
	FaultCount7d      int
	FaultCount30d     int
	FaultCount30to60d int
	FaultCount90d     int
	VisitCount90d     int

	Recurring []domain.RecurringFault

	OutOfService  bool
	UnderContract bool
	ContractPlan  string
}

// activation maps the state onto the CEL variables.
func (s *State) activation() map[string]any {
	topType := ""
	topCount := 0
	if len(s.Recurring) > 0 {
		topType = s.Recurring[0].Type
		topCount = s.Recurring[0].Count
	}

	return map[string]any{
		"fault_count_7d":      int64(s.FaultCount7d),
		"fault_count_30d":     int64(s.FaultCount30d),
		"fault_count_90d":     int64(s.FaultCount90d),
		"visit_count_90d":     int64(s.VisitCount90d),
		"recurring_count":     int64(len(s.Recurring)),
		"top_recurring_type":  topType,
		"top_recurring_count": int64(topCount),
		"out_of_service":      s.OutOfService,
		"under_contract":      s.UnderContract,
		"contract_plan":       s.ContractPlan,
	}
}

func newFactorEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("fault_count_7d", cel.IntType),
		cel.Variable("fault_count_30d", cel.IntType),
		cel.Variable("fault_count_90d", cel.IntType),
		cel.Variable("visit_count_90d", cel.IntType),
		cel.Variable("recurring_count", cel.IntType),
		cel.Variable("top_recurring_type", cel.StringType),
		cel.Variable("top_recurring_count", cel.IntType),
		cel.Variable("out_of_service", cel.BoolType),
		cel.Variable("under_contract", cel.BoolType),
		cel.Variable("contract_plan", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// compiledFactor holds the pre-compiled CEL programs of one factor.
type compiledFactor struct {
	Factor      Factor
	Trigger     cel.Program
	Weight      cel.Program
	Description cel.Program
}

func compileFactor(env *cel.Env, f Factor) (*compiledFactor, error) {
	trigger, err := compileExpr(env, f.Name, "trigger", f.Trigger, cel.BoolType)
	if err != nil {
		return nil, err
	}
	weight, err := compileExpr(env, f.Name, "weight", f.Weight, cel.IntType)
	if err != nil {
		return nil, err
	}
	desc, err := compileExpr(env, f.Name, "description", f.Description, cel.StringType)
	if err != nil {
		return nil, err
	}

	return &compiledFactor{
		Factor:      f,
		Trigger:     trigger,
		Weight:      weight,
		Description: desc,
	}, nil
}

func compileExpr(env *cel.Env, factor, part, expr string, want *cel.Type) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile %s of factor %q: %w", part, factor, issues.Err())
	}

	if !ast.OutputType().IsExactType(want) {
		return nil, fmt.Errorf("factor %q: %s must return %s, got %s", factor, part, want, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s program for factor %q: %w", part, factor, err)
	}
	return program, nil
}

// evaluate runs one factor against an activation. It returns nil when the
// factor does not trigger.
func (c *compiledFactor) evaluate(activation map[string]any) (*domain.RiskFactor, error) {
	out, _, err := c.Trigger.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("factor %q trigger: %w", c.Factor.Name, err)
	}
	triggered, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("factor %q trigger returned %T", c.Factor.Name, out.Value())
	}
	if !triggered {
		return nil, nil
	}

	out, _, err = c.Weight.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("factor %q weight: %w", c.Factor.Name, err)
	}
	weight, ok := out.Value().(int64)
	if !ok {
		return nil, fmt.Errorf("factor %q weight returned %T", c.Factor.Name, out.Value())
	}

	out, _, err = c.Description.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("factor %q description: %w", c.Factor.Name, err)
	}
	desc, _ := out.Value().(string)

	return &domain.RiskFactor{
		Name:        c.Factor.Name,
		Weight:      int(weight),
		Description: desc,
		Kind:        c.Factor.Kind,
	}, nil
}
