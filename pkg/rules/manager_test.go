package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleManager_CompileProgram(t *testing.T) {
	rm, err := NewRuleManager()
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"Comparação simples", "body['38'] == '100'", false},
		{"Operador in e header", "'49' in header && header['49'].startsWith('CLI')", false},
		{"Sintaxe inválida", "body['38'] ==", true},
		{"Variável desconhecida", "input.age > 1", true},
		{"Resultado não booleano", "body['38']", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rm.CompileProgram(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRuleManager_EvaluateBool(t *testing.T) {
	rm, _ := NewRuleManager()
	prg, err := rm.CompileProgram("int(body['38']) >= 100 && header['35'] == 'D'")
	require.NoError(t, err)

	ok, err := rm.EvaluateBool(prg, map[string]string{"35": "D"}, map[string]string{"38": "150"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rm.EvaluateBool(prg, map[string]string{"35": "D"}, map[string]string{"38": "50"})
	require.NoError(t, err)
	assert.False(t, ok)

	// Chave ausente vira erro de avaliação
	_, err = rm.EvaluateBool(prg, map[string]string{"35": "D"}, map[string]string{})
	assert.Error(t, err)
}
