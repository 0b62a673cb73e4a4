package simulator

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/scheduler"
)

var ErrNoSession = errors.New("nenhuma sessão ativa")

// Sender entrega uma mensagem ao motor de sessão.
type Sender interface {
	Send(msg *quickfix.Message, sid quickfix.SessionID) error
}

// QuickfixSender usa o roteamento global do quickfix.
type QuickfixSender struct{}

func (QuickfixSender) Send(msg *quickfix.Message, sid quickfix.SessionID) error {
	return quickfix.SendToTarget(msg, sid)
}

// Dispatch materializa os campos da entrega no momento do envio (campos comuns primeiro,
// os do step prevalecem) e envia para a sessão de origem.
func (c *Controller) Dispatch(ctx context.Context, d scheduler.Delivery) error {
	msg, err := c.factory.New(string(d.Kind()))
	if err != nil {
		return err
	}
	if failures := c.resolver.Fill(ctx, &msg.Body.FieldMap, d.Trigger, d.Common, d.Step.Reply); failures > 0 {
		c.log.Warn().Int("failures", failures).Msg("resposta enviada com campos omitidos")
	}
	if err := c.sender.Send(msg, d.SessionID); err != nil {
		return fmt.Errorf("erro no envio para %s: %w", d.SessionID, err)
	}
	return nil
}

// SendActive envia para a sessão ativa (usado pelo stress). Sem sessão, a mensagem é descartada.
func (c *Controller) SendActive(msg *quickfix.Message) error {
	sid, ok := c.ActiveSession()
	if !ok {
		return ErrNoSession
	}
	return c.sender.Send(msg, sid)
}
