package scheduler

import (
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
)

// Delivery é uma resposta pendente. Step e Common pertencem à configuração, que é imutável
// durante a vida do processo; a mensagem de entrada é compartilhada entre os steps do fluxo.
type Delivery struct {
	At        time.Time
	SessionID quickfix.SessionID
	Step      *config.Step
	Common    config.FieldMap
	Trigger   *quickfix.Message

	seq uint64
}

// Kind é o tipo da mensagem a ser construída.
func (d Delivery) Kind() config.MessageKind {
	return d.Step.Kind()
}

// deliveryHeap implementa heap.Interface ordenado por (At, seq).
type deliveryHeap []*Delivery

func (h deliveryHeap) Len() int { return len(h) }

func (h deliveryHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].seq < h[j].seq
	}
	return h[i].At.Before(h[j].At)
}

func (h deliveryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *deliveryHeap) Push(x any) {
	*h = append(*h, x.(*Delivery))
}

func (h *deliveryHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}
