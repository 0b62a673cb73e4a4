package simulator

import (
	"context"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/fixmsg"
)

// replaySessionStatus envia a sequência de TradingSessionStatus configurada, em ordem.
// Intervalo <= 0 envia na hora; caso contrário espera, e o cancelamento abandona o restante.
func (c *Controller) replaySessionStatus(ctx context.Context, sid quickfix.SessionID) {
	log := c.log.With().Str("session", sid.String()).Logger()
	log.Info().Int("entries", len(c.cfg.TradingSessionStatus)).Msg("iniciando envio de TradingSessionStatus")

	for i, entry := range c.cfg.TradingSessionStatus {
		msg, err := c.factory.New(string(config.TradingSessionStatus))
		if err != nil {
			log.Error().Err(err).Msg("TradingSessionStatus não suportado nesta versão")
			return
		}
		for tag, value := range entry.Reply {
			fixmsg.SetField(&msg.Body.FieldMap, quickfix.Tag(tag), value)
		}

		if entry.Interval > 0 {
			timer := time.NewTimer(time.Duration(entry.Interval) * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info().Int("remaining", len(c.cfg.TradingSessionStatus)-i).Msg("envio de TradingSessionStatus interrompido")
				return
			case <-timer.C:
			}
		}

		if err := c.sender.Send(msg, sid); err != nil {
			log.Error().Err(err).Int("entry", i).Msg("falha ao enviar TradingSessionStatus")
		}
	}
}

// sendLogonResponse roda na lane principal, pois os templates podem usar o memo de order ids.
func (c *Controller) sendLogonResponse(ctx context.Context, trigger *quickfix.Message, sid quickfix.SessionID) {
	resp := c.cfg.LogonResponse
	msg, err := c.factory.NewRaw(resp.MsgType)
	if err != nil {
		c.log.Error().Err(err).Msg("falha ao montar resposta de logon")
		return
	}
	c.resolver.Fill(ctx, &msg.Body.FieldMap, trigger, resp.Reply)
	if err := c.sender.Send(msg, sid); err != nil {
		c.log.Error().Err(err).Str("session", sid.String()).Msg("falha ao enviar resposta de logon")
	}
}
