package flood

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/quickfixgo/quickfix"
)

var (
	ErrInvalidBatch = errors.New("lote de stress inválido")
	ErrClosed       = errors.New("gerador de stress encerrado")
)

// Field é um par tag=valor de uma linha do lote.
type Field struct {
	Tag   quickfix.Tag
	Value string
}

// FieldSet são os campos de uma mensagem, na ordem em que aparecem na linha.
type FieldSet []Field

// Batch é o lote já interpretado: uma mensagem por linha.
type Batch []FieldSet

// ParseBatch interpreta o corpo do /stress: linhas separadas por '\n', pares "tag=valor"
// separados por ','. Pares sem exatamente um '=' são ignorados, assim como linhas vazias.
// Tag não numérica invalida o lote inteiro.
func ParseBatch(text string) (Batch, error) {
	var batch Batch
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var set FieldSet
		for _, pair := range strings.Split(line, ",") {
			kv := strings.Split(pair, "=")
			if len(kv) != 2 {
				continue
			}
			tag, err := strconv.Atoi(strings.TrimSpace(kv[0]))
			if err != nil || tag <= 0 {
				return nil, fmt.Errorf("%w: linha %d, tag %q", ErrInvalidBatch, n+1, kv[0])
			}
			set = append(set, Field{Tag: quickfix.Tag(tag), Value: kv[1]})
		}
		if len(set) > 0 {
			batch = append(batch, set)
		}
	}
	return batch, nil
}
