package template

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	TimestampLayout = "20060102-15:04:05.000"
	orderIDLayout   = "20060102.150405.000"

	randomMin = 1000
	randomMax = 9999
)

// Memo guarda o order id gerado por ClOrdID. Implementado pelo dedup.Guard.
type Memo interface {
	OrderID(ctx context.Context, key string, generate func() string) string
}

// Registry concentra o estado mutável dos geradores (contadores, relógio e memo de order ids).
type Registry struct {
	counter  atomic.Uint64
	orderSeq atomic.Uint64
	prefix   string
	memo     Memo
	now      func() time.Time
}

type RegistryOption func(*Registry)

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithMemo liga a memoização de order ids.
func WithMemo(m Memo) RegistryOption {
	return func(r *Registry) { r.memo = m }
}

func NewRegistry(prefix string, opts ...RegistryOption) *Registry {
	r := &Registry{prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now retorna o instante atual em UTC segundo o relógio do registry.
func (r *Registry) Now() time.Time {
	return r.now().UTC()
}

// UUID gera um UUID v4 com '.' no lugar de '-'.
func (r *Registry) UUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", ".")
}

func (r *Registry) Timestamp() string {
	return r.Now().Format(TimestampLayout)
}

func (r *Registry) RandomNumber() string {
	return strconv.Itoa(randomMin + rand.IntN(randomMax-randomMin+1))
}

// Increment devolve o próximo valor do contador global (começa em 1).
func (r *Registry) Increment() string {
	return strconv.FormatUint(r.counter.Add(1), 10)
}

// NewOrderID gera um order id novo, sem memoização.
func (r *Registry) NewOrderID() string {
	return fmt.Sprintf("%s.%s.%d", r.prefix, r.Now().Format(orderIDLayout), r.orderSeq.Add(1))
}

// UniqueOrderID devolve o order id memoizado para o ClOrdID. Sem ClOrdID (ou sem memo)
// um id novo é gerado a cada chamada.
func (r *Registry) UniqueOrderID(ctx context.Context, clOrdID string, ok bool) string {
	if !ok || r.memo == nil {
		return r.NewOrderID()
	}
	return r.memo.OrderID(ctx, clOrdID, r.NewOrderID)
}
