package metrics

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Processor liga os IDs de métrica do simulador aos seus nomes e tipos reais e envia ao Provider.
// Um Processor nil descarta tudo, o que simplifica os testes dos componentes.
type Processor struct {
	definitions map[string]MetricDefinition
	provider    Provider
	log         zerolog.Logger
}

// NewProcessor cria um processador com o catálogo padrão (Definitions).
func NewProcessor(provider Provider, log zerolog.Logger) *Processor {
	return &Processor{
		definitions: Definitions,
		provider:    provider,
		log:         log.With().Str("component", "metrics").Logger(),
	}
}

// Record envia o valor da métrica. Falhas do provider são apenas registradas.
func (p *Processor) Record(id string, value float64, tags ...string) {
	if p == nil {
		return
	}
	if err := p.send(id, value, tags); err != nil {
		p.log.Warn().Err(err).Str("metric", id).Msg("falha ao enviar métrica")
	}
}

// Inc é atalho para contadores.
func (p *Processor) Inc(id string, tags ...string) {
	p.Record(id, 1, tags...)
}

func (p *Processor) send(id string, value float64, tags []string) error {
	// 1. Buscar definição da métrica (Nome e Tipo)
	def, exists := p.definitions[id]
	if !exists {
		return fmt.Errorf("métrica não definida: %s", id)
	}

	// 2. Enviar para o Provider
	switch def.Type {
	case TypeCount:
		return p.provider.Count(def.Name, value, tags)
	case TypeGauge:
		return p.provider.Gauge(def.Name, value, tags)
	case TypeHistogram:
		return p.provider.Histogram(def.Name, value, tags)
	default:
		return fmt.Errorf("tipo de métrica desconhecido: %s", def.Type)
	}
}
