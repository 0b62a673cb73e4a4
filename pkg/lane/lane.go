package lane

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("lane encerrada")

// Lane executa funções postadas, uma de cada vez, na ordem de chegada, numa única goroutine.
// Todo estado acessado apenas de dentro da lane dispensa locks.
//
// A fila é ilimitada: Post nunca bloqueia quem chama (callbacks do quickfix, handlers HTTP).
type Lane struct {
	name   string
	log    zerolog.Logger
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffer 1, agrupa sinais
}

func New(name string, log zerolog.Logger) *Lane {
	return &Lane{
		name:   name,
		log:    log.With().Str("component", "lane").Str("lane", name).Logger(),
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Post enfileira fn. Retorna false se a lane já foi encerrada.
func (l *Lane) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Do posta fn e espera a execução terminar.
func (l *Lane) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consome a fila até o contexto ser cancelado. Tarefas pendentes no encerramento
// são descartadas.
func (l *Lane) Run(ctx context.Context) error {
	defer l.close()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			l.execute(fn)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.signal:
		}
	}
}

// Pending retorna o tamanho atual da fila.
func (l *Lane) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Lane) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return fn, true
}

func (l *Lane) close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.tasks); n > 0 {
		l.log.Info().Int("discarded", n).Msg("lane encerrada com tarefas pendentes")
	}
	l.closed = true
	l.tasks = nil
}

// execute roda fn recuperando panics para que uma tarefa com falha não derrube a lane.
func (l *Lane) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Err(fmt.Errorf("panic: %v", r)).Msg("tarefa da lane falhou")
		}
	}()
	fn()
}
