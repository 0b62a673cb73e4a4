package simulator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/dedup"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/raywall/fixsim/pkg/flood"
	"github.com/raywall/fixsim/pkg/journal"
	"github.com/raywall/fixsim/pkg/lane"
	"github.com/raywall/fixsim/pkg/metrics"
	"github.com/raywall/fixsim/pkg/rules"
	"github.com/raywall/fixsim/pkg/scheduler"
	"github.com/raywall/fixsim/pkg/template"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Journal recebe cópias das mensagens de aplicação. Implementado por journal.Writer.
type Journal interface {
	TryAppend(r journal.Record) error
}

// Deps são os colaboradores externos do controller. Campos nulos recebem o padrão.
type Deps struct {
	Sender  Sender             // padrão: quickfix.SendToTarget
	Store   dedup.Store        // padrão: memória
	Journal Journal            // opcional
	Metrics *metrics.Processor // opcional
	Clock   func() time.Time   // padrão: time.Now
}

// Controller liga os callbacks da sessão FIX ao pipeline matcher -> resolver -> scheduler
// e expõe os ganchos operacionais (pausa, stress) à superfície de controle.
type Controller struct {
	cfg      *config.SimulatorConfig
	core     *lane.Lane // matcher, dedup, scheduler, memo de order ids
	aux      *lane.Lane // registro da sessão ativa
	matcher  *rules.Matcher
	resolver *template.Resolver
	guard    *dedup.Guard
	sched    *scheduler.Scheduler
	flood    *flood.Generator
	factory  *fixmsg.Factory
	sender   Sender
	journal  Journal
	metrics  *metrics.Processor
	now      func() time.Time
	log      zerolog.Logger

	dupFlows []config.ReplyFlow // resposta de ClOrdID duplicado, por índice de regra
	session  atomic.Pointer[quickfix.SessionID]

	ctx    context.Context // cancelado no fim do Run
	cancel context.CancelFunc
	tasks  sync.WaitGroup // replays de status de sessão

	life    sync.Mutex
	closing bool // marcado antes do tasks.Wait; tasks.Add só com life e closing falso
}

// New monta o controller. As regras precisam estar ordenadas (config.SortRules).
func New(cfg *config.SimulatorConfig, deps Deps, log zerolog.Logger) (*Controller, error) {
	if deps.Sender == nil {
		deps.Sender = QuickfixSender{}
	}
	if deps.Store == nil {
		deps.Store = dedup.NewMemoryStore()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	c := &Controller{
		cfg:     cfg,
		core:    lane.New("core", log),
		aux:     lane.New("aux", log),
		factory: fixmsg.NewFactory(string(cfg.FixVersion)),
		sender:  deps.Sender,
		journal: deps.Journal,
		metrics: deps.Metrics,
		now:     deps.Clock,
		log:     log.With().Str("component", "simulator").Logger(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	matcher, err := rules.NewMatcher(cfg.CustomReply, log)
	if err != nil {
		return nil, fmt.Errorf("erro ao compilar regras: %w", err)
	}
	c.matcher = matcher

	c.guard = dedup.NewGuard(deps.Store, cfg.Dedup.GetRetention(), log, dedup.WithClock(deps.Clock))
	registry := template.NewRegistry(cfg.GetOrderIDPrefix(),
		template.WithClock(deps.Clock),
		template.WithMemo(c.guard),
	)
	c.resolver = template.NewResolver(registry, log)
	c.sched = scheduler.New(c, log, scheduler.WithClock(deps.Clock), scheduler.WithMetrics(deps.Metrics))
	c.flood = flood.NewGenerator(c.factory, registry, c, cfg.FloodInterval(), log, flood.WithMetrics(deps.Metrics))

	c.dupFlows = make([]config.ReplyFlow, len(cfg.CustomReply))
	for i, r := range cfg.CustomReply {
		if len(r.CheckClOrderID) == 0 {
			continue
		}
		c.dupFlows[i] = config.ReplyFlow{Steps: []config.Step{{
			Reply:    r.CheckClOrderID,
			Interval: -1,
			MsgType:  config.ExecutionReport,
		}}}
	}
	return c, nil
}

// Run executa as lanes, o tick do scheduler e a limpeza do dedup até o contexto ser cancelado.
// No encerramento o stress e os replays são interrompidos e as entregas pendentes descartadas.
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.core.Run(gctx) })
	g.Go(func() error { return c.aux.Run(gctx) })
	g.Go(func() error { return c.sched.Run(gctx, c.core, c.cfg.TickInterval()) })
	g.Go(func() error { return c.sweepLoop(gctx, c.cfg.Dedup.GetSweepInterval()) })
	g.Go(func() error {
		<-gctx.Done()
		c.cancel()
		return nil
	})

	c.log.Info().
		Str("fix_version", string(c.cfg.FixVersion)).
		Int("rules", len(c.cfg.CustomReply)).
		Dur("tick", c.cfg.TickInterval()).
		Msg("simulador iniciado")

	err := g.Wait()
	c.life.Lock()
	c.closing = true
	c.life.Unlock()
	c.flood.Close()
	c.tasks.Wait()
	c.log.Info().Msg("simulador encerrado")
	return err
}

// Pause liga/desliga a entrega das respostas agendadas. Não afeta o enfileiramento.
func (c *Controller) Pause(flag bool) {
	c.sched.Pause(flag)
}

func (c *Controller) Paused() bool {
	return c.sched.Paused()
}

// StartFlood inicia o stress com o lote já interpretado. Depois do Run encerrar é ignorado.
func (c *Controller) StartFlood(batch flood.Batch) {
	_ = c.flood.Start(c.ctx, batch)
}

func (c *Controller) StopFlood() {
	c.flood.Stop()
}

func (c *Controller) FloodRunning() bool {
	return c.flood.Running()
}

// ActiveSession retorna a sessão registrada no último OnCreate.
func (c *Controller) ActiveSession() (quickfix.SessionID, bool) {
	sid := c.session.Load()
	if sid == nil {
		return quickfix.SessionID{}, false
	}
	return *sid, true
}

func (c *Controller) sweepLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.core.Post(func() {
				removed := c.guard.Sweep(ctx, c.now())
				c.metrics.Record(metrics.DedupSwept, float64(removed))
			})
		}
	}
}
