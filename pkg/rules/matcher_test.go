package rules

import (
	"testing"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(fields map[quickfix.Tag]string) *quickfix.Message {
	msg := quickfix.NewMessage()
	msg.Header.SetString(fixmsg.TagMsgType, "D")
	for tag, v := range fields {
		msg.Body.SetString(tag, v)
	}
	return msg
}

func flow(values ...string) config.ReplyFlow {
	var f config.ReplyFlow
	for _, v := range values {
		f.Steps = append(f.Steps, config.Step{Reply: config.FieldMap{150: v}, Interval: -1})
	}
	return f
}

func TestMatcher_SpecificityOrder(t *testing.T) {
	cfg := &config.SimulatorConfig{CustomReply: []config.Rule{
		{ // genérica
			CheckConditionHeader: config.FieldMap{35: "D"},
			DefaultReplyFlow:     flow("generic"),
		},
		{ // específica, declarada depois
			CheckConditionHeader: config.FieldMap{35: "D"},
			CheckConditionBody:   config.FieldMap{54: "1"},
			DefaultReplyFlow:     flow("buy"),
		},
	}}
	cfg.SortRules()

	m, err := NewMatcher(cfg.CustomReply, zerolog.Nop())
	require.NoError(t, err)

	got, ok := m.Match(order(map[quickfix.Tag]string{54: "1"}))
	require.True(t, ok)
	assert.Equal(t, "buy", got.Flow.Steps[0].Reply[150])
	assert.Equal(t, 0, got.Index)

	got, ok = m.Match(order(map[quickfix.Tag]string{54: "2"}))
	require.True(t, ok)
	assert.Equal(t, "generic", got.Flow.Steps[0].Reply[150])
}

func TestMatcher_FirstMatchWinsOnTies(t *testing.T) {
	cfg := &config.SimulatorConfig{CustomReply: []config.Rule{
		{CheckConditionHeader: config.FieldMap{35: "D"}, DefaultReplyFlow: flow("primeira")},
		{CheckConditionBody: config.FieldMap{55: config.AnyValue}, DefaultReplyFlow: flow("segunda")},
	}}
	cfg.SortRules()

	m, err := NewMatcher(cfg.CustomReply, zerolog.Nop())
	require.NoError(t, err)

	got, ok := m.Match(order(map[quickfix.Tag]string{55: "PETR4"}))
	require.True(t, ok)
	assert.Equal(t, "primeira", got.Flow.Steps[0].Reply[150])
}

func TestMatcher_Conditions(t *testing.T) {
	rules := []config.Rule{{
		CheckConditionHeader: config.FieldMap{35: "D"},
		CheckConditionBody:   config.FieldMap{40: "2", 59: config.AnyValue},
		DefaultReplyFlow:     flow("ok"),
	}}
	m, err := NewMatcher(rules, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name   string
		fields map[quickfix.Tag]string
		want   bool
	}{
		{"Todas satisfeitas", map[quickfix.Tag]string{40: "2", 59: "0"}, true},
		{"Sentinela casa sem o campo", map[quickfix.Tag]string{40: "2"}, true},
		{"Valor divergente", map[quickfix.Tag]string{40: "1"}, false},
		{"Campo ausente", map[quickfix.Tag]string{59: "0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.Match(order(tt.fields))
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("Header divergente", func(t *testing.T) {
		msg := order(map[quickfix.Tag]string{40: "2"})
		msg.Header.SetString(fixmsg.TagMsgType, "F")
		_, ok := m.Match(msg)
		assert.False(t, ok)
	})
}

func TestMatcher_SymbolOverride(t *testing.T) {
	rules := []config.Rule{{
		CheckConditionHeader: config.FieldMap{35: "D"},
		DefaultReplyFlow:     flow("default"),
		SymbolsReplyFlow: []config.SymbolsReplyFlow{
			{Symbols: []string{"VALE3"}}, // fluxo vazio é ignorado
			{Symbols: []string{"PETR4", "VALE3"}, ReplyFlow: flow("petro-vale")},
		},
	}}
	m, err := NewMatcher(rules, zerolog.Nop())
	require.NoError(t, err)

	got, _ := m.Match(order(map[quickfix.Tag]string{55: "VALE3"}))
	assert.Equal(t, "petro-vale", got.Flow.Steps[0].Reply[150])
	assert.Equal(t, "VALE3", got.Symbol)

	got, _ = m.Match(order(map[quickfix.Tag]string{55: "ITUB4"}))
	assert.Equal(t, "default", got.Flow.Steps[0].Reply[150])

	got, _ = m.Match(order(nil))
	assert.Equal(t, "default", got.Flow.Steps[0].Reply[150])
	assert.Empty(t, got.Symbol)
}

func TestMatcher_CELGuard(t *testing.T) {
	rules := []config.Rule{
		{
			CheckConditionHeader: config.FieldMap{35: "D"},
			CheckConditionExpr:   "int(body['38']) > 1000",
			DefaultReplyFlow:     flow("grande"),
		},
		{CheckConditionHeader: config.FieldMap{35: "D"}, DefaultReplyFlow: flow("normal")},
	}
	m, err := NewMatcher(rules, zerolog.Nop())
	require.NoError(t, err)

	got, _ := m.Match(order(map[quickfix.Tag]string{38: "5000"}))
	assert.Equal(t, "grande", got.Flow.Steps[0].Reply[150])

	got, _ = m.Match(order(map[quickfix.Tag]string{38: "10"}))
	assert.Equal(t, "normal", got.Flow.Steps[0].Reply[150])

	// Erro de avaliação (campo ausente) não derruba: a regra é pulada
	got, _ = m.Match(order(nil))
	assert.Equal(t, "normal", got.Flow.Steps[0].Reply[150])

	_, err = NewMatcher([]config.Rule{{CheckConditionExpr: "body["}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestMatcher_NoMatch(t *testing.T) {
	m, err := NewMatcher([]config.Rule{{CheckConditionHeader: config.FieldMap{35: "G"}}}, zerolog.Nop())
	require.NoError(t, err)

	_, ok := m.Match(order(nil))
	assert.False(t, ok)
}
