package dedup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entry é o estado guardado por chave de correlação (ClOrdID).
// Seen só é marcado pelo Guard.Seen; o memo de order id não conta como ocorrência.
type Entry struct {
	Stamp   time.Time `json:"stamp"`
	Seen    bool      `json:"seen,omitempty"`
	OrderID string    `json:"order_id,omitempty"`
}

// Store é o armazenamento das entradas. Nenhuma implementação expira chaves sozinha:
// a remoção acontece apenas via DeleteBefore.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Len(ctx context.Context) (int, error)
}

// Guard detecta ClOrdIDs repetidos e memoiza o order id gerado para cada um.
// Não é seguro para uso concorrente: todas as chamadas acontecem na lane principal.
type Guard struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func NewGuard(store Store, retention time.Duration, log zerolog.Logger, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("component", "dedup").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Seen marca a chave e informa se ela já tinha sido marcada antes por Seen.
func (g *Guard) Seen(ctx context.Context, key string) bool {
	e, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Error().Err(err).Str("cl_ord_id", key).Msg("falha ao consultar chave")
		return false
	}
	if ok && e.Seen {
		return true
	}
	if !ok {
		e.Stamp = g.now()
	}
	e.Seen = true
	if err := g.store.Put(ctx, key, e); err != nil {
		g.log.Error().Err(err).Str("cl_ord_id", key).Msg("falha ao registrar chave")
	}
	return false
}

// OrderID devolve o order id memoizado para a chave, gerando e registrando um novo
// na primeira chamada. O instante de criação da entrada não é alterado.
func (g *Guard) OrderID(ctx context.Context, key string, generate func() string) string {
	e, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Error().Err(err).Str("cl_ord_id", key).Msg("falha ao consultar memo, gerando order id avulso")
		return generate()
	}
	if ok && e.OrderID != "" {
		return e.OrderID
	}
	if !ok {
		e.Stamp = g.now()
	}
	e.OrderID = generate()
	if err := g.store.Put(ctx, key, e); err != nil {
		g.log.Error().Err(err).Str("cl_ord_id", key).Msg("falha ao gravar memo")
	}
	return e.OrderID
}

// Sweep remove as entradas com idade maior que a retenção. Retorna quantas foram removidas.
func (g *Guard) Sweep(ctx context.Context, now time.Time) int {
	removed, err := g.store.DeleteBefore(ctx, now.Add(-g.retention))
	if err != nil {
		g.log.Error().Err(err).Msg("falha na limpeza de chaves")
	}
	if removed > 0 {
		g.log.Info().Int("removed", removed).Msg("limpeza de chaves expiradas")
	}
	return removed
}

func (g *Guard) Len(ctx context.Context) int {
	n, err := g.store.Len(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("falha ao contar chaves")
	}
	return n
}
