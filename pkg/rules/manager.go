package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// RuleManager compila e avalia as expressões CEL de guarda das regras (check_condition_expr).
type RuleManager struct {
	env *cel.Env
}

// NewRuleManager inicializa o ambiente CEL com as variáveis expostas às regras.
func NewRuleManager() (*RuleManager, error) {
	fields := cel.MapType(cel.StringType, cel.StringType)
	env, err := cel.NewEnv(
		cel.Variable("header", fields), // Campos do header, indexados pela tag em texto
		cel.Variable("body", fields),   // Campos do corpo
	)
	if err != nil {
		return nil, fmt.Errorf("erro fatal CEL init: %w", err)
	}

	return &RuleManager{env: env}, nil
}

// CompileProgram compila a expressão e exige que ela resulte em booleano.
func (rm *RuleManager) CompileProgram(expr string) (cel.Program, error) {
	ast, issues := rm.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("erro de compilação CEL '%s': %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expressão CEL '%s' deve retornar bool, retorna %s", expr, ast.OutputType())
	}
	prg, err := rm.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar programa CEL: %w", err)
	}
	return prg, nil
}

// EvaluateBool executa um programa já compilado sobre os campos da mensagem.
func (rm *RuleManager) EvaluateBool(prg cel.Program, header, body map[string]string) (bool, error) {
	out, _, err := prg.Eval(map[string]interface{}{
		"header": header,
		"body":   body,
	})
	if err != nil {
		return false, fmt.Errorf("erro execução CEL: %w", err)
	}

	if val, ok := out.Value().(bool); ok {
		return val, nil
	}
	return false, fmt.Errorf("resultado não é booleano")
}
