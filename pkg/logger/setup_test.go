package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("Nível padrão info", func(t *testing.T) {
		_ = Configure(config.LoggingConf{Enabled: true})
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("Nível debug", func(t *testing.T) {
		_ = Configure(config.LoggingConf{Enabled: true, Level: "DEBUG"})
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("Logger desabilitado", func(t *testing.T) {
		var buf bytes.Buffer
		log := ConfigureTo(config.LoggingConf{Enabled: false}, &buf)
		log.Info().Msg("teste")
		assert.Zero(t, buf.Len())
	})

	t.Run("JSON com contexto do serviço", func(t *testing.T) {
		var buf bytes.Buffer
		log := ConfigureTo(config.LoggingConf{Enabled: true, Format: "json"}, &buf)
		log.Info().Msg("teste")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "fixsim", entry["service"])
		assert.Equal(t, "teste", entry["message"])
	})
}

func TestQuickfixLogFactory(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	factory := NewQuickfixLogFactory(zerolog.New(&buf))

	sid := quickfix.SessionID{BeginString: "FIX.4.4", SenderCompID: "SIM", TargetCompID: "CLIENT"}
	log, err := factory.CreateSessionLog(sid)
	require.NoError(t, err)

	log.OnIncoming([]byte("8=FIX.4.4\x0135=D\x01"))
	log.OnEventf("Logon %s", "ok")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var incoming, event map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &incoming))
	require.NoError(t, json.Unmarshal(lines[1], &event))

	assert.Equal(t, "8=FIX.4.4|35=D|", incoming["fix"])
	assert.Equal(t, "in", incoming["direction"])
	assert.Equal(t, sid.String(), incoming["session"])
	assert.Equal(t, "quickfix", incoming["component"])
	assert.Equal(t, "Logon ok", event["message"])

	global, err := factory.Create()
	require.NoError(t, err)
	global.OnEvent("global")
	assert.Contains(t, buf.String(), `"message":"global"`)
}
