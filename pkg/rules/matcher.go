package rules

import (
	"github.com/google/cel-go/cel"
	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/rs/zerolog"
)

// Match é o resultado de uma seleção: a regra escolhida e o fluxo de resposta aplicável.
type Match struct {
	Index  int // posição da regra na lista ordenada
	Rule   *config.Rule
	Flow   *config.ReplyFlow
	Symbol string
}

type compiledRule struct {
	rule  *config.Rule
	guard cel.Program
}

// Matcher seleciona a primeira regra satisfeita, na ordem já ordenada da configuração.
// As regras são referenciadas, não copiadas, e não podem ser alteradas depois de NewMatcher.
type Matcher struct {
	rules []compiledRule
	rm    *RuleManager
	log   zerolog.Logger
}

// NewMatcher compila as guardas CEL das regras. Uma expressão inválida é erro de configuração.
func NewMatcher(rules []config.Rule, log zerolog.Logger) (*Matcher, error) {
	rm, err := NewRuleManager()
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		rules: make([]compiledRule, len(rules)),
		rm:    rm,
		log:   log.With().Str("component", "matcher").Logger(),
	}
	for i := range rules {
		m.rules[i].rule = &rules[i]
		if rules[i].CheckConditionExpr == "" {
			continue
		}
		prg, err := rm.CompileProgram(rules[i].CheckConditionExpr)
		if err != nil {
			return nil, err
		}
		m.rules[i].guard = prg
	}
	return m, nil
}

// Match retorna a primeira regra cujas condições de header e corpo (e a guarda, se houver)
// são todas satisfeitas. Regras seguintes nunca são avaliadas.
func (m *Matcher) Match(msg *quickfix.Message) (Match, bool) {
	for i, cr := range m.rules {
		if !satisfied(&msg.Header.FieldMap, cr.rule.CheckConditionHeader) {
			continue
		}
		if !satisfied(&msg.Body.FieldMap, cr.rule.CheckConditionBody) {
			continue
		}
		if cr.guard != nil {
			ok, err := m.rm.EvaluateBool(cr.guard, fixmsg.Snapshot(&msg.Header.FieldMap), fixmsg.Snapshot(&msg.Body.FieldMap))
			if err != nil {
				m.log.Error().Err(err).Int("rule", i).Msg("falha ao avaliar guarda da regra")
				continue
			}
			if !ok {
				continue
			}
		}
		return m.selectFlow(i, cr.rule, msg), true
	}
	return Match{}, false
}

func (m *Matcher) selectFlow(index int, rule *config.Rule, msg *quickfix.Message) Match {
	match := Match{Index: index, Rule: rule, Flow: &rule.DefaultReplyFlow}

	symbol, ok := fixmsg.Lookup(&msg.Body.FieldMap, fixmsg.TagSymbol)
	if !ok {
		m.log.Debug().Int("rule", index).Msg("mensagem sem Symbol(55), usando fluxo padrão")
		return match
	}
	match.Symbol = symbol

	for i := range rule.SymbolsReplyFlow {
		override := &rule.SymbolsReplyFlow[i]
		if len(override.Steps) == 0 {
			continue
		}
		for _, s := range override.Symbols {
			if s == symbol {
				match.Flow = &override.ReplyFlow
				return match
			}
		}
	}
	return match
}

// satisfied exige que todas as condições casem. O sentinela casa sempre, mesmo sem o campo;
// qualquer outro valor esperado exige o campo presente e igual.
func satisfied(fm *quickfix.FieldMap, conds config.FieldMap) bool {
	for tag, expected := range conds {
		if expected == config.AnyValue {
			continue
		}
		v, ok := fixmsg.Lookup(fm, quickfix.Tag(tag))
		if !ok || v != expected {
			return false
		}
	}
	return true
}
