package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables available to text expressions.
const (
	VarText      = "text"
	VarVehicleID = "vehicle_id"
)

type Evaluator struct {
	env *cel.Env
}

// Program is a compiled boolean expression, safe for concurrent use.
type Program struct {
	expression string
	program    cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarText, cel.StringType),
		cel.Variable(VarVehicleID, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.Compile(expression)
	return err
}

// Compile checks that the expression yields a bool and prepares it for
// repeated evaluation.
func (e *Evaluator) Compile(expression string) (*Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Program{expression: expression, program: program}, nil
}

func (p *Program) Expression() string {
	return p.expression
}

func (p *Program) Eval(ctx context.Context, text, vehicleID string) (bool, error) {
	vars := map[string]interface{}{
		VarText:      text,
		VarVehicleID: vehicleID,
	}

	result, _, err := p.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
