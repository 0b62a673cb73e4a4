package fixmsg

import (
	"errors"
	"fmt"

	"github.com/quickfixgo/quickfix"
)

// ErrUnsupported indica uma combinação versão x tipo de mensagem sem suporte.
var ErrUnsupported = errors.New("fixmsg: combinação de versão e tipo de mensagem não suportada")

// Tags usadas diretamente pelo simulador.
const (
	TagBeginString  quickfix.Tag = 8
	TagClOrdID      quickfix.Tag = 11
	TagExecID       quickfix.Tag = 17
	TagMsgType      quickfix.Tag = 35
	TagSymbol       quickfix.Tag = 55
	TagTransactTime quickfix.Tag = 60
	TagApplVerID    quickfix.Tag = 1128
)

const (
	MsgTypeLogon                = "A"
	MsgTypeExecutionReport      = "8"
	MsgTypeOrderCancelReject    = "9"
	MsgTypeTradingSessionStatus = "h"
)

// Versões aceitas em fix_version.
const (
	FIX40 = "FIX40"
	FIX41 = "FIX41"
	FIX42 = "FIX42"
	FIX43 = "FIX43"
	FIX44 = "FIX44"
	FIX50 = "FIX50"
)

// Tipos de mensagem de resposta.
const (
	ExecutionReport      = "ExecutionReport"
	OrderCancelReject    = "OrderCancelReject"
	TradingSessionStatus = "TradingSessionStatus"
)

type envelope struct {
	beginString string
	applVerID   string
}

var envelopes = map[string]envelope{
	FIX40: {beginString: "FIX.4.0"},
	FIX41: {beginString: "FIX.4.1"},
	FIX42: {beginString: "FIX.4.2"},
	FIX43: {beginString: "FIX.4.3"},
	FIX44: {beginString: "FIX.4.4"},
	FIX50: {beginString: "FIXT.1.1", applVerID: "7"},
}

var msgTypes = map[string]string{
	ExecutionReport:      MsgTypeExecutionReport,
	OrderCancelReject:    MsgTypeOrderCancelReject,
	TradingSessionStatus: MsgTypeTradingSessionStatus,
}

// TradingSessionStatus só existe a partir do FIX 4.2.
var unsupported = map[string]map[string]bool{
	TradingSessionStatus: {FIX40: true, FIX41: true},
}

// Factory cria mensagens vazias de um tipo na versão configurada.
type Factory struct {
	version string
}

func NewFactory(version string) *Factory {
	return &Factory{version: version}
}

func (f *Factory) Version() string {
	return f.version
}

// Supports informa se a combinação versão x tipo pode ser construída.
func Supports(version, kind string) bool {
	if _, ok := envelopes[version]; !ok {
		return false
	}
	if _, ok := msgTypes[kind]; !ok {
		return false
	}
	return !unsupported[kind][version]
}

// New cria uma mensagem do tipo informado.
func (f *Factory) New(kind string) (*quickfix.Message, error) {
	if !Supports(f.version, kind) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, f.version, kind)
	}
	return f.NewRaw(msgTypes[kind])
}

// NewRaw cria uma mensagem com um MsgType arbitrário (ex: resposta de logon customizada).
func (f *Factory) NewRaw(msgType string) (*quickfix.Message, error) {
	env, ok := envelopes[f.version]
	if !ok {
		return nil, fmt.Errorf("%w: versão %q", ErrUnsupported, f.version)
	}
	msg := quickfix.NewMessage()
	msg.Header.SetString(TagBeginString, env.beginString)
	msg.Header.SetString(TagMsgType, msgType)
	if env.applVerID != "" {
		msg.Header.SetString(TagApplVerID, env.applVerID)
	}
	return msg, nil
}
