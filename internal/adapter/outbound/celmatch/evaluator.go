package celmatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

const (
	// maxExpressionLength bounds how much text an admin can push through a
	// single match_expression before it is rejected outright.
	maxExpressionLength = 1024
	// maxCostBudget caps the CEL runtime cost estimate, guarding against a
	// pathological expression turning every Resolve call into a scan.
	maxCostBudget = 100_000
	// evalTimeout bounds a single expression evaluation.
	evalTimeout = 500 * time.Millisecond
)

// Evaluator compiles and caches CEL programs for policy match expressions
// and implements policy.ExpressionMatcher.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator builds an Evaluator with the match-expression environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := newMatchEnvironment()
	if err != nil {
		return nil, fmt.Errorf("build cel environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// ValidateExpression reports whether expression is a syntactically valid,
// boolean-typed CEL program. The config write paths (ConfigStore setters,
// config validation) do not call it.
func (e *Evaluator) ValidateExpression(expression string) error {
	if expression == "" {
		return errors.New("expression is empty")
	}
	if len(expression) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expression), maxExpressionLength)
	}
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (cel.Program, error) {
	e.mu.Lock()
	if prg, ok := e.programs[expression]; ok {
		e.mu.Unlock()
		return prg, nil
	}
	e.mu.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile match expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("match expression must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast, cel.EvalOptions(cel.OptOptimize), cel.CostLimit(maxCostBudget))
	if err != nil {
		return nil, fmt.Errorf("build match expression program: %w", err)
	}

	e.mu.Lock()
	e.programs[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

// Matches implements policy.ExpressionMatcher.
func (e *Evaluator) Matches(expression string, ctx policy.EvaluationContext) (bool, error) {
	prg, err := e.compile(expression)
	if err != nil {
		return false, err
	}

	arguments := ctx.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}
	activation := map[string]any{
		"tool_name":  ctx.Tool,
		"mode":       string(ctx.Mode),
		"model":      ctx.Model,
		"mcp_server": ctx.MCPServer,
		"arguments":  arguments,
	}

	evalCtx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(evalCtx, activation)
	if err != nil {
		return false, fmt.Errorf("evaluate match expression: %w", err)
	}
	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("match expression did not return a bool, got %T", result.Value())
	}
	return matched, nil
}

var _ policy.ExpressionMatcher = (*Evaluator)(nil)
