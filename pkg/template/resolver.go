package template

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/rs/zerolog"
)

var (
	ErrFieldMissing     = errors.New("campo referenciado ausente na mensagem de entrada")
	ErrUnknownGenerator = errors.New("gerador desconhecido")
)

// Value é o resultado da resolução. Present=false significa que o campo deve ser omitido.
type Value struct {
	Text    string
	Present bool
}

// Resolver materializa templates a partir da mensagem de entrada e dos geradores.
type Resolver struct {
	reg *Registry
	log zerolog.Logger
}

func NewResolver(reg *Registry, log zerolog.Logger) *Resolver {
	return &Resolver{
		reg: reg,
		log: log.With().Str("component", "template").Logger(),
	}
}

func (r *Resolver) Registry() *Registry {
	return r.reg
}

// Resolve avalia um template. Referência obrigatória ausente retorna ErrFieldMissing;
// referência opcional ausente retorna Value{Present: false} sem erro.
func (r *Resolver) Resolve(ctx context.Context, t Template, trigger *quickfix.Message) (Value, error) {
	switch t.Kind {
	case KindLiteral, KindBool:
		return Value{Text: t.Raw, Present: true}, nil

	case KindBody, KindOptionalBody, KindHeader, KindOptionalHeader:
		fm := &trigger.Body.FieldMap
		if t.fromHeader() {
			fm = &trigger.Header.FieldMap
		}
		v, ok := fixmsg.Lookup(fm, t.Tag)
		if ok {
			return Value{Text: v, Present: true}, nil
		}
		if t.Optional() {
			return Value{}, nil
		}
		return Value{}, fmt.Errorf("%w: tag %d", ErrFieldMissing, t.Tag)

	case KindCall:
		return r.call(ctx, t.Call, trigger)
	}
	return Value{}, fmt.Errorf("%w: %q", ErrInvalidTemplate, t.Raw)
}

func (r *Resolver) call(ctx context.Context, name string, trigger *quickfix.Message) (Value, error) {
	switch name {
	case "uuid":
		return Value{Text: r.reg.UUID(), Present: true}, nil
	case "timestamp", "getTzDateTime":
		return Value{Text: r.reg.Timestamp(), Present: true}, nil
	case "random-number", "randomNumber":
		return Value{Text: r.reg.RandomNumber(), Present: true}, nil
	case "monotonic-counter", "increment":
		return Value{Text: r.reg.Increment(), Present: true}, nil
	case "unique-order-id", "createUniqueOrderID":
		clOrdID, ok := fixmsg.Lookup(&trigger.Body.FieldMap, fixmsg.TagClOrdID)
		if !ok {
			r.log.Warn().Msg("ClOrdID ausente, gerando order id sem memoização")
		}
		return Value{Text: r.reg.UniqueOrderID(ctx, clOrdID, ok), Present: true}, nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
}

// Apply resolve o template bruto e grava o resultado na tag de destino.
func (r *Resolver) Apply(ctx context.Context, dst *quickfix.FieldMap, tag int, raw string, trigger *quickfix.Message) error {
	t, err := Parse(raw)
	if err != nil {
		return err
	}
	v, err := r.Resolve(ctx, t, trigger)
	if err != nil {
		return err
	}
	if v.Present {
		fixmsg.SetField(dst, quickfix.Tag(tag), v.Text)
	}
	return nil
}

// Fill aplica as camadas de templates em ordem; em tags repetidas a última camada prevalece.
// Falhas de um campo são registradas e não interrompem os demais. Retorna o número de falhas.
func (r *Resolver) Fill(ctx context.Context, dst *quickfix.FieldMap, trigger *quickfix.Message, layers ...map[int]string) int {
	merged := make(map[int]string)
	for _, layer := range layers {
		for tag, raw := range layer {
			merged[tag] = raw
		}
	}

	tags := make([]int, 0, len(merged))
	for tag := range merged {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	failures := 0
	for _, tag := range tags {
		if err := r.Apply(ctx, dst, tag, merged[tag], trigger); err != nil {
			failures++
			r.log.Error().Err(err).Int("tag", tag).Str("template", merged[tag]).Msg("falha ao resolver campo")
		}
	}
	return failures
}
