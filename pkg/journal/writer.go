package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

var (
	ErrQueueFull      = errors.New("fila do journal cheia")
	ErrClosed         = errors.New("journal encerrado")
	ErrNotStarted     = errors.New("journal não iniciado")
	ErrAlreadyStarted = errors.New("journal já iniciado")
)

// Direction indica se a mensagem entrou ou saiu do simulador.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Record é uma mensagem de aplicação registrada.
type Record struct {
	At        time.Time
	Direction Direction
	SessionID string
	MsgType   string
	Raw       string
}

// DB é o subconjunto de *sql.DB usado pelo writer.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Writer grava as mensagens no Postgres a partir de uma fila com buffer, fora da lane principal.
// TryAppend nunca bloqueia: com a fila cheia o registro é descartado.
type Writer struct {
	db      DB
	table   string
	ch      chan Record
	wg      sync.WaitGroup
	log     zerolog.Logger
	started atomic.Bool
	closed  atomic.Bool
	dropped atomic.Uint64
}

// Open abre a conexão Postgres (driver lib/pq).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão SQL: %w", err)
	}
	return db, nil
}

func NewWriter(db DB, table string, buffer int, log zerolog.Logger) *Writer {
	return &Writer{
		db:    db,
		table: pq.QuoteIdentifier(table),
		ch:    make(chan Record, buffer),
		log:   log.With().Str("component", "journal").Logger(),
	}
}

// Start cria a tabela se necessário e inicia o loop de gravação.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctxDb, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := w.db.ExecContext(ctxDb, w.createStmt()); err != nil {
		return fmt.Errorf("erro ao criar tabela do journal: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// TryAppend enfileira o registro sem bloquear.
func (w *Writer) TryAppend(r Record) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if !w.started.Load() {
		return ErrNotStarted
	}
	select {
	case w.ch <- r:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close para de aceitar registros e espera a fila ser gravada.
func (w *Writer) Close() error {
	if w.closed.CompareAndSwap(false, true) {
		close(w.ch)
	}
	w.wg.Wait()
	if n := w.dropped.Load(); n > 0 {
		w.log.Warn().Uint64("dropped", n).Msg("registros descartados por fila cheia")
	}
	return nil
}

func (w *Writer) run(ctx context.Context) {
	insert := w.insertStmt()
	for {
		select {
		case r, ok := <-w.ch:
			if !ok {
				return
			}
			w.write(ctx, insert, r)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, insert string, r Record) {
	ctxDb, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := w.db.ExecContext(ctxDb, insert, r.At.UTC(), string(r.Direction), r.SessionID, r.MsgType, r.Raw)
	if err != nil {
		w.log.Error().Err(err).Str("msg_type", r.MsgType).Msg("falha ao gravar no journal")
	}
}

func (w *Writer) createStmt() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	at TIMESTAMPTZ NOT NULL,
	direction TEXT NOT NULL,
	session_id TEXT NOT NULL,
	msg_type TEXT NOT NULL,
	raw TEXT NOT NULL
)`, w.table)
}

func (w *Writer) insertStmt() string {
	return fmt.Sprintf(`INSERT INTO %s (at, direction, session_id, msg_type, raw) VALUES ($1, $2, $3, $4, $5)`, w.table)
}
