package template

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/quickfixgo/quickfix"
)

// Kind classifica um template de campo pelo prefixo.
type Kind int

const (
	KindLiteral Kind = iota
	KindBool
	KindBody
	KindOptionalBody
	KindHeader
	KindOptionalHeader
	KindCall
)

const (
	prefixBody           = "input."
	prefixOptionalBody   = "if_input."
	prefixHeader         = "input_header."
	prefixOptionalHeader = "if_input_header."
	prefixCall           = "call."

	BoolTrue  = "bool:true"
	BoolFalse = "bool:false"
)

var ErrInvalidTemplate = errors.New("template inválido")

// Template é a forma interpretada de um valor de campo da configuração.
type Template struct {
	Kind Kind
	Raw  string
	Tag  quickfix.Tag // referências input*/if_input*
	Call string       // nome do gerador (call.<nome>)
}

// Parse interpreta o template pelo prefixo. Sem prefixo reconhecido o valor é literal.
func Parse(raw string) (Template, error) {
	t := Template{Kind: KindLiteral, Raw: raw}

	// A ordem importa: "if_input_header." antes de "if_input." e "input_header." antes de "input."
	refs := []struct {
		prefix string
		kind   Kind
	}{
		{prefixOptionalHeader, KindOptionalHeader},
		{prefixHeader, KindHeader},
		{prefixOptionalBody, KindOptionalBody},
		{prefixBody, KindBody},
	}
	for _, r := range refs {
		if !strings.HasPrefix(raw, r.prefix) {
			continue
		}
		suffix := strings.TrimPrefix(raw, r.prefix)
		tag, err := strconv.Atoi(suffix)
		if err != nil || tag <= 0 {
			return t, fmt.Errorf("%w: %q não referencia uma tag numérica", ErrInvalidTemplate, raw)
		}
		t.Kind = r.kind
		t.Tag = quickfix.Tag(tag)
		return t, nil
	}

	if strings.HasPrefix(raw, prefixCall) {
		name := strings.TrimPrefix(raw, prefixCall)
		if name == "" || strings.Contains(name, ".") {
			return t, fmt.Errorf("%w: chamada %q mal formada", ErrInvalidTemplate, raw)
		}
		t.Kind = KindCall
		t.Call = name
		return t, nil
	}

	if raw == BoolTrue || raw == BoolFalse {
		t.Kind = KindBool
	}
	return t, nil
}

// MustParse é usado em testes e valores fixos.
func MustParse(raw string) Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Optional indica referências que são omitidas quando o campo não existe.
func (t Template) Optional() bool {
	return t.Kind == KindOptionalBody || t.Kind == KindOptionalHeader
}

func (t Template) fromHeader() bool {
	return t.Kind == KindHeader || t.Kind == KindOptionalHeader
}
