package fixmsg

import (
	"strconv"

	"github.com/quickfixgo/quickfix"
)

const (
	boolTrue  = "bool:true"
	boolFalse = "bool:false"
)

// SetField grava o valor no FieldMap, tratando "bool:true"/"bool:false" como campo booleano.
func SetField(fm *quickfix.FieldMap, tag quickfix.Tag, value string) {
	switch value {
	case boolTrue:
		fm.SetBool(tag, true)
	case boolFalse:
		fm.SetBool(tag, false)
	default:
		fm.SetString(tag, value)
	}
}

// Lookup lê um campo como string; ok=false quando o campo não está presente.
func Lookup(fm *quickfix.FieldMap, tag quickfix.Tag) (string, bool) {
	if !fm.Has(tag) {
		return "", false
	}
	v, err := fm.GetString(tag)
	if err != nil {
		return "", false
	}
	return v, true
}

// Snapshot copia todos os campos do FieldMap para um mapa indexado pela tag em texto.
func Snapshot(fm *quickfix.FieldMap) map[string]string {
	out := make(map[string]string)
	for _, tag := range fm.Tags() {
		if v, err := fm.GetString(tag); err == nil {
			out[strconv.Itoa(int(tag))] = v
		}
	}
	return out
}

// Clone devolve uma cópia independente da mensagem.
func Clone(msg *quickfix.Message) *quickfix.Message {
	out := quickfix.NewMessage()
	msg.CopyInto(out)
	return out
}
