package rules

import (
	"fmt"

	"github.com/raywall/fixsim/pkg/config"
)

// ValidationReport contém o resultado detalhado da análise.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Analyze inspeciona as regras já ordenadas em busca de erros de CEL e de configurações
// que carregam mas provavelmente não fazem o esperado.
func Analyze(cfg *config.SimulatorConfig) (*ValidationReport, error) {
	report := &ValidationReport{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	rm, err := NewRuleManager()
	if err != nil {
		return nil, fmt.Errorf("falha interna ao iniciar analisador de regras: %w", err)
	}

	for j := range cfg.CustomReply {
		rule := &cfg.CustomReply[j]

		// 1. Guarda CEL
		if rule.CheckConditionExpr != "" {
			if _, err := rm.CompileProgram(rule.CheckConditionExpr); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("custom_reply[%d]: Erro CEL: %v", j, err))
			}
		}

		// 2. Regra sem MsgType casa com qualquer mensagem de aplicação
		if v, ok := rule.CheckConditionHeader[35]; !ok || v == config.AnyValue {
			report.Warnings = append(report.Warnings, fmt.Sprintf("custom_reply[%d]: sem condição de MsgType(35), casa com qualquer mensagem", j))
		}

		// 3. Regras anteriores que sempre casam quando esta casa
		for i := 0; i < j; i++ {
			if shadows(&cfg.CustomReply[i], rule) {
				report.Warnings = append(report.Warnings, fmt.Sprintf("custom_reply[%d]: nunca será selecionada, custom_reply[%d] casa antes", j, i))
				break
			}
		}

		// 4. Passos imediatos depois de passos com atraso
		checkSteps(report, fmt.Sprintf("custom_reply[%d].default_reply_flow", j), rule.DefaultReplyFlow)

		// 5. Símbolos repetidos entre overrides: vale o primeiro
		seen := make(map[string]int)
		for k, sf := range rule.SymbolsReplyFlow {
			checkSteps(report, fmt.Sprintf("custom_reply[%d].symbols_reply_flow[%d]", j, k), sf.ReplyFlow)
			if len(sf.Steps) == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("custom_reply[%d].symbols_reply_flow[%d]: sem reply_flow, o fluxo padrão é usado", j, k))
			}
			for _, s := range sf.Symbols {
				if first, dup := seen[s]; dup {
					report.Warnings = append(report.Warnings, fmt.Sprintf("custom_reply[%d]: símbolo %s repetido, vale symbols_reply_flow[%d]", j, s, first))
					continue
				}
				seen[s] = k
			}
		}
	}

	if len(report.Errors) > 0 {
		report.Valid = false
	}
	return report, nil
}

// shadows indica que toda mensagem que satisfaz b também satisfaz a.
func shadows(a, b *config.Rule) bool {
	if a.CheckConditionExpr != "" {
		return false
	}
	return covers(a.CheckConditionHeader, b.CheckConditionHeader) &&
		covers(a.CheckConditionBody, b.CheckConditionBody)
}

func covers(general, specific config.FieldMap) bool {
	for tag, expected := range general {
		if expected == config.AnyValue {
			continue
		}
		if specific[tag] != expected {
			return false
		}
	}
	return true
}

func checkSteps(report *ValidationReport, path string, flow config.ReplyFlow) {
	delayed := false
	for i, step := range flow.Steps {
		if step.Interval > 0 {
			delayed = true
			continue
		}
		if delayed {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s.reply_flow[%d]: interval <= 0 depois de passo com atraso, é enviado imediatamente", path, i))
		}
	}
}
