package logger

import (
	"fmt"
	"strings"

	"github.com/quickfixgo/quickfix"
	"github.com/rs/zerolog"
)

// QuickfixLogFactory direciona os logs do motor de sessão para o zerolog.
type QuickfixLogFactory struct {
	log zerolog.Logger
}

var _ quickfix.LogFactory = (*QuickfixLogFactory)(nil)

func NewQuickfixLogFactory(log zerolog.Logger) *QuickfixLogFactory {
	return &QuickfixLogFactory{log: log.With().Str("component", "quickfix").Logger()}
}

func (f *QuickfixLogFactory) Create() (quickfix.Log, error) {
	return &sessionLog{log: f.log}, nil
}

func (f *QuickfixLogFactory) CreateSessionLog(sid quickfix.SessionID) (quickfix.Log, error) {
	return &sessionLog{log: f.log.With().Str("session", sid.String()).Logger()}, nil
}

type sessionLog struct {
	log zerolog.Logger
}

// Mensagens em nível debug, eventos de sessão em info.
func (l *sessionLog) OnIncoming(raw []byte) {
	l.log.Debug().Str("direction", "in").Str("fix", readable(raw)).Msg("mensagem recebida")
}

func (l *sessionLog) OnOutgoing(raw []byte) {
	l.log.Debug().Str("direction", "out").Str("fix", readable(raw)).Msg("mensagem enviada")
}

func (l *sessionLog) OnEvent(msg string) {
	l.log.Info().Msg(msg)
}

func (l *sessionLog) OnEventf(format string, args ...interface{}) {
	l.log.Info().Msg(fmt.Sprintf(format, args...))
}

// readable troca o separador SOH por '|'.
func readable(raw []byte) string {
	return strings.ReplaceAll(string(raw), "\x01", "|")
}
