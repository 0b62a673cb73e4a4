package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/metrics"
	"github.com/rs/zerolog"
)

// Dispatcher materializa e envia uma entrega. Erros são registrados e a entrega descartada.
type Dispatcher interface {
	Dispatch(ctx context.Context, d Delivery) error
}

// Poster agenda trabalho na lane principal.
type Poster interface {
	Post(fn func()) bool
}

// Scheduler mantém a fila de respostas pendentes ordenada por horário de entrega.
// Enqueue, Tick e Pending só podem ser chamados de dentro da lane principal;
// Pause e Paused podem ser chamados de qualquer goroutine.
type Scheduler struct {
	queue    deliveryHeap
	seq      uint64
	paused   atomic.Bool
	dispatch Dispatcher
	now      func() time.Time
	metrics  *metrics.Processor
	log      zerolog.Logger
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithMetrics(p *metrics.Processor) Option {
	return func(s *Scheduler) { s.metrics = p }
}

func New(d Dispatcher, log zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		dispatch: d,
		now:      time.Now,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue processa os steps do fluxo em ordem. Steps com intervalo <= 0 são enviados na hora,
// antes de Enqueue retornar; os demais são agendados com atraso cumulativo a partir de agora.
func (s *Scheduler) Enqueue(ctx context.Context, flow *config.ReplyFlow, trigger *quickfix.Message, sid quickfix.SessionID) {
	base := s.now()
	var offset time.Duration

	for i := range flow.Steps {
		step := &flow.Steps[i]
		d := Delivery{
			SessionID: sid,
			Step:      step,
			Common:    flow.CommonFields,
			Trigger:   trigger,
		}

		if step.Interval <= 0 {
			d.At = base
			s.send(ctx, d)
			continue
		}

		offset += step.Delay()
		d.At = base.Add(offset)
		s.push(d)
	}
	s.metrics.Record(metrics.SchedulerPending, float64(len(s.queue)))
}

// Tick entrega, em ordem de horário, todas as entradas vencidas. Pausado, não faz nada.
// Retorna o número de entregas despachadas.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	if s.paused.Load() {
		return 0
	}

	n := 0
	for len(s.queue) > 0 && !s.queue[0].At.After(now) {
		d := heap.Pop(&s.queue).(*Delivery)
		s.metrics.Record(metrics.DeliveryLag, float64(now.Sub(d.At).Milliseconds()))
		s.send(ctx, *d)
		n++
	}
	if n > 0 {
		s.metrics.Record(metrics.SchedulerPending, float64(len(s.queue)))
	}
	return n
}

// Run posta um Tick na lane a cada intervalo até o contexto ser cancelado.
// As entregas pendentes no encerramento são descartadas.
func (s *Scheduler) Run(ctx context.Context, lane Poster, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("intervalo do scheduler inválido: %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			lane.Post(func() { s.Tick(ctx, s.now()) })
		}
	}
}

func (s *Scheduler) Pause(flag bool) {
	prev := s.paused.Swap(flag)
	if prev != flag {
		s.log.Info().Bool("paused", flag).Msg("estado de pausa alterado")
	}
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Pending retorna o número de entregas na fila.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Next retorna o horário da próxima entrega, se houver.
func (s *Scheduler) Next() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].At, true
}

func (s *Scheduler) push(d Delivery) {
	s.seq++
	d.seq = s.seq
	heap.Push(&s.queue, &d)
}

func (s *Scheduler) send(ctx context.Context, d Delivery) {
	if err := s.dispatch.Dispatch(ctx, d); err != nil {
		s.metrics.Inc(metrics.DeliveryFailed)
		s.log.Error().Err(err).
			Str("session", d.SessionID.String()).
			Str("msg_type", string(d.Kind())).
			Msg("falha no envio, entrega descartada")
		return
	}
	s.metrics.Inc(metrics.DeliverySent, "msg_type:"+string(d.Kind()))
}
