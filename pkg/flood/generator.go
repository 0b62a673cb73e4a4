package flood

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/raywall/fixsim/pkg/metrics"
	"github.com/rs/zerolog"
)

// Sender envia direto para a sessão ativa, sem passar pelo scheduler.
type Sender interface {
	SendActive(msg *quickfix.Message) error
}

// Ticker abstrai time.Ticker para permitir testes determinísticos.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Timestamper fornece o TransactTime das mensagens.
type Timestamper interface {
	Timestamp() string
}

// Generator reenvia um lote em intervalo fixo até ser parado. Roda na sua própria goroutine,
// fora da lane principal, e só compartilha com ela a sessão ativa (via Sender).
type Generator struct {
	factory   *fixmsg.Factory
	clock     Timestamper
	send      Sender
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	metrics   *metrics.Processor
	log       zerolog.Logger

	mu      sync.Mutex
	current *atomic.Bool // flag de parada da execução corrente
	closed  bool         // Close chamado; wg.Add só acontece com mu e closed falso
	wg      sync.WaitGroup
}

type Option func(*Generator)

func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(g *Generator) { g.newTicker = fn }
}

func WithMetrics(p *metrics.Processor) Option {
	return func(g *Generator) { g.metrics = p }
}

func NewGenerator(factory *fixmsg.Factory, clock Timestamper, send Sender, interval time.Duration, log zerolog.Logger, opts ...Option) *Generator {
	g := &Generator{
		factory:   factory,
		clock:     clock,
		send:      send,
		interval:  interval,
		newTicker: newTimeTicker,
		log:       log.With().Str("component", "flood").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start inicia uma nova execução com o lote. Lote vazio não faz nada. Uma execução anterior
// ainda ativa é sinalizada para parar no próximo tick. Depois do Close, ou com o contexto
// cancelado, retorna ErrClosed.
func (g *Generator) Start(ctx context.Context, batch Batch) error {
	if len(batch) == 0 {
		g.log.Info().Msg("lote vazio, stress ignorado")
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || ctx.Err() != nil {
		g.log.Warn().Msg("gerador encerrado, stress ignorado")
		return ErrClosed
	}

	stop := &atomic.Bool{}
	if g.current != nil {
		g.current.Store(true)
	}
	g.current = stop

	ticker := g.newTicker(g.interval)
	g.log.Info().Int("messages", len(batch)).Dur("interval", g.interval).Msg("stress iniciado")
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer ticker.Stop()
		g.run(ctx, ticker, batch, stop)
	}()
	return nil
}

// Close recusa novas execuções, sinaliza a corrente e espera todas terminarem.
func (g *Generator) Close() {
	g.mu.Lock()
	g.closed = true
	if g.current != nil {
		g.current.Store(true)
	}
	g.mu.Unlock()
	g.wg.Wait()
}

// Stop sinaliza a execução corrente. O lote em andamento termina antes da parada.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil {
		g.current.Store(true)
	}
	g.log.Info().Msg("stress encerrado")
}

// Running informa se existe uma execução não sinalizada.
func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil && !g.current.Load()
}

// Wait aguarda todas as execuções terminarem.
func (g *Generator) Wait() {
	g.wg.Wait()
}

func (g *Generator) run(ctx context.Context, ticker Ticker, batch Batch, stop *atomic.Bool) {
	var execID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}
		if stop.Load() {
			return
		}

		for _, set := range batch {
			msg, err := g.build(set, execID)
			execID++
			if err != nil {
				g.log.Error().Err(err).Msg("falha ao montar mensagem de stress")
				return
			}
			if err := g.send.SendActive(msg); err != nil {
				g.log.Error().Err(err).Msg("falha no envio de stress")
				continue
			}
			g.metrics.Inc(metrics.FloodSent)
		}
	}
}

// build monta um ExecutionReport com TransactTime atual e ExecID sequencial da execução.
func (g *Generator) build(set FieldSet, execID uint64) (*quickfix.Message, error) {
	msg, err := g.factory.New(fixmsg.ExecutionReport)
	if err != nil {
		return nil, err
	}
	msg.Body.SetString(fixmsg.TagTransactTime, g.clock.Timestamp())
	for _, f := range set {
		msg.Body.SetString(f.Tag, f.Value)
	}
	msg.Body.SetString(fixmsg.TagExecID, strconv.FormatUint(execID, 10))
	return msg, nil
}
