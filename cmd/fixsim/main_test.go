package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/rules"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixIni = `
[DEFAULT]
SocketAcceptPort=0
FileStorePath=store

[SESSION]
BeginString=FIX.4.4
SenderCompID=SIMULATOR
TargetCompID=CLIENT
`

const simulatorYAML = `
fix_version: FIX44
http_server_host: 127.0.0.1
http_server_port: 0
interval: 50
stress_interval: 1000
fix_ini: %INI%
logging:
  enabled: false
custom_reply:
  - check_condition_header:
      35: D
    default_reply_flow:
      common_fields:
        11: input.11
      reply_flow:
        - reply:
            150: 0
            39: 0
`

// writeConfig grava o .ini e o YAML em um diretório temporário e retorna o caminho do YAML.
func writeConfig(t *testing.T, yaml, ini string) string {
	t.Helper()
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "fix.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte(ini), 0o600))

	cfgPath := filepath.Join(dir, "simulator.yaml")
	content := strings.ReplaceAll(yaml, "%INI%", iniPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath
}

type fakeAcceptor struct {
	startErr error
	started  chan struct{}
	stopped  atomic.Bool
}

func (f *fakeAcceptor) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	close(f.started)
	return nil
}

func (f *fakeAcceptor) Stop() { f.stopped.Store(true) }

// withAcceptor substitui o acceptor real por um fake durante o teste.
func withAcceptor(t *testing.T, fake *fakeAcceptor) {
	t.Helper()
	original := acceptorStarter
	acceptorStarter = func(app quickfix.Application, _ *quickfix.Settings, _ quickfix.LogFactory) (acceptor, error) {
		assert.NotNil(t, app)
		return fake, nil
	}
	t.Cleanup(func() { acceptorStarter = original })
}

func TestRun_Bootstrap(t *testing.T) {
	// 1. Configuração válida temporária
	path := writeConfig(t, simulatorYAML, fixIni)

	// 2. Mock do acceptor para não abrir socket FIX
	fake := &fakeAcceptor{started: make(chan struct{})}
	withAcceptor(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	// 3. Encerra assim que o acceptor sobe
	select {
	case <-fake.started:
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor não foi iniciado")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run não encerrou após cancelamento")
	}
	assert.True(t, fake.stopped.Load())
}

func TestRun_Errors(t *testing.T) {
	t.Run("Configuração inexistente", func(t *testing.T) {
		err := run(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Arquivo .ini inexistente", func(t *testing.T) {
		path := writeConfig(t, strings.Replace(simulatorYAML, "%INI%", "/nao/existe/fix.ini", 1), fixIni)
		err := run(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/nao/existe/fix.ini")
	})

	t.Run("Falha ao iniciar acceptor", func(t *testing.T) {
		path := writeConfig(t, simulatorYAML, fixIni)
		withAcceptor(t, &fakeAcceptor{startErr: errors.New("porta em uso")})

		err := run(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "porta em uso")
	})
}

func TestDictionaryPath(t *testing.T) {
	tests := []struct {
		name     string
		ini      string
		expected string
	}{
		{
			name:     "Sem dicionário",
			ini:      fixIni,
			expected: "",
		},
		{
			name:     "DataDictionary no DEFAULT",
			ini:      strings.Replace(fixIni, "[DEFAULT]", "[DEFAULT]\nDataDictionary=spec/FIX44.xml", 1),
			expected: "spec/FIX44.xml",
		},
		{
			name:     "AppDataDictionary na sessão",
			ini:      fixIni + "AppDataDictionary=spec/FIX50SP2.xml\n",
			expected: "spec/FIX50SP2.xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := quickfix.ParseSettings(strings.NewReader(tt.ini))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dictionaryPath(settings))
		})
	}
}

func TestLoadDictionary(t *testing.T) {
	ini := strings.Replace(fixIni, "[DEFAULT]", "[DEFAULT]\nDataDictionary=../../pkg/dictionary/testdata/FIX44-mini.xml", 1)
	settings, err := quickfix.ParseSettings(strings.NewReader(ini))
	require.NoError(t, err)

	dict := loadDictionary(settings, zerolog.Nop())
	require.NotNil(t, dict)
	assert.Equal(t, "FIX.4.4", dict.Version)

	// dicionário ausente desliga as rotas mas não derruba o boot
	missing := strings.Replace(fixIni, "[DEFAULT]", "[DEFAULT]\nDataDictionary=/nao/existe.xml", 1)
	settings, err = quickfix.ParseSettings(strings.NewReader(missing))
	require.NoError(t, err)
	assert.Nil(t, loadDictionary(settings, zerolog.Nop()))
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, simulatorYAML, fixIni)

	t.Run("Texto", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"validate", "--config", path})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "✅ Configuração válida: FIX44, 1 regra(s)")
	})

	t.Run("JSON", func(t *testing.T) {
		t.Setenv("OUTPUT_FORMAT", "json")

		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"validate", "-c", path})
		require.NoError(t, cmd.Execute())

		var report rules.ValidationReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.True(t, report.Valid)
	})

	t.Run("Configuração inválida", func(t *testing.T) {
		bad := writeConfig(t, strings.Replace(simulatorYAML, "interval: 50", "interval: 0", 1), fixIni)

		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"validate", "--config", bad})
		assert.Error(t, cmd.Execute())
	})

	t.Run("Sem --config", func(t *testing.T) {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"validate", "--config", ""})
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CONFIG_FILE_PATH")
	})
}
