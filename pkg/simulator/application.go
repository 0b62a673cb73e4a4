package simulator

import (
	"context"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/raywall/fixsim/pkg/journal"
	"github.com/raywall/fixsim/pkg/metrics"
)

var _ quickfix.Application = (*Controller)(nil)

// Os callbacks abaixo rodam na goroutine do quickfix e só postam trabalho nas lanes.

func (c *Controller) OnCreate(sid quickfix.SessionID) {
	c.log.Info().Str("session", sid.String()).Msg("onCreate")
	c.aux.Post(func() {
		c.session.Store(&sid)
	})
}

func (c *Controller) OnLogon(sid quickfix.SessionID) {
	c.log.Info().Str("session", sid.String()).Msg("onLogon")
	if len(c.cfg.TradingSessionStatus) == 0 {
		return
	}
	c.life.Lock()
	defer c.life.Unlock()
	if c.closing || c.ctx.Err() != nil {
		c.log.Warn().Str("session", sid.String()).Msg("simulador encerrando, replay de status ignorado")
		return
	}
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		c.replaySessionStatus(c.ctx, sid)
	}()
}

func (c *Controller) OnLogout(sid quickfix.SessionID) {
	c.log.Info().Str("session", sid.String()).Msg("onLogout")
}

func (c *Controller) ToAdmin(_ *quickfix.Message, _ quickfix.SessionID) {}

// ToApp aplica os overrides de header configurados em toda mensagem de aplicação enviada.
func (c *Controller) ToApp(msg *quickfix.Message, sid quickfix.SessionID) error {
	for tag, value := range c.cfg.Header {
		fixmsg.SetField(&msg.Header.FieldMap, quickfix.Tag(tag), value)
	}
	c.record(journal.Outbound, msg, sid)
	return nil
}

// FromAdmin responde ao Logon com a mensagem customizada, se configurada.
func (c *Controller) FromAdmin(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	if c.cfg.LogonResponse == nil {
		return nil
	}
	msgType, ok := fixmsg.Lookup(&msg.Header.FieldMap, fixmsg.TagMsgType)
	if !ok || msgType != fixmsg.MsgTypeLogon {
		return nil
	}
	trigger := fixmsg.Clone(msg)
	c.core.Post(func() {
		c.sendLogonResponse(c.ctx, trigger, sid)
	})
	return nil
}

// FromApp copia a mensagem e posta o processamento na lane principal.
func (c *Controller) FromApp(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	c.metrics.Inc(metrics.MessagesReceived)
	c.record(journal.Inbound, msg, sid)

	trigger := fixmsg.Clone(msg)
	c.core.Post(func() {
		c.handle(c.ctx, trigger, sid)
	})
	return nil
}

// handle roda na lane principal: seleção da regra, checagem de duplicidade e agendamento.
func (c *Controller) handle(ctx context.Context, msg *quickfix.Message, sid quickfix.SessionID) {
	match, ok := c.matcher.Match(msg)
	if !ok {
		c.metrics.Inc(metrics.MessagesUnmatched)
		c.log.Error().Str("message", msg.String()).Msg("configuração não encontrada para a mensagem")
		return
	}

	if dup := &c.dupFlows[match.Index]; len(dup.Steps) > 0 {
		clOrdID, ok := fixmsg.Lookup(&msg.Body.FieldMap, fixmsg.TagClOrdID)
		switch {
		case !ok:
			c.log.Error().Int("rule", match.Index).Msg("ClOrdID(11) ausente, checagem de duplicidade ignorada")
		case c.guard.Seen(ctx, clOrdID):
			c.metrics.Inc(metrics.DuplicateOrders)
			c.log.Info().Str("cl_ord_id", clOrdID).Msg("ordem duplicada")
			c.sched.Enqueue(ctx, dup, msg, sid)
			return
		}
	}

	c.sched.Enqueue(ctx, match.Flow, msg, sid)
}

func (c *Controller) record(dir journal.Direction, msg *quickfix.Message, sid quickfix.SessionID) {
	if c.journal == nil {
		return
	}
	msgType, _ := fixmsg.Lookup(&msg.Header.FieldMap, fixmsg.TagMsgType)
	err := c.journal.TryAppend(journal.Record{
		At:        c.now(),
		Direction: dir,
		SessionID: sid.String(),
		MsgType:   msgType,
		Raw:       msg.String(),
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("mensagem não registrada no journal")
	}
}
