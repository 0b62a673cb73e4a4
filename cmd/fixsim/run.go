package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/quickfixgo/quickfix"
	qfconfig "github.com/quickfixgo/quickfix/config"
	"github.com/raywall/fixsim/pkg/dedup"
	"github.com/raywall/fixsim/pkg/dictionary"
	"github.com/raywall/fixsim/pkg/journal"
	"github.com/raywall/fixsim/pkg/loader"
	"github.com/raywall/fixsim/pkg/logger"
	"github.com/raywall/fixsim/pkg/metrics"
	"github.com/raywall/fixsim/pkg/observability"
	"github.com/raywall/fixsim/pkg/simulator"
	"github.com/raywall/fixsim/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// acceptor é o subconjunto do quickfix.Acceptor usado no boot.
type acceptor interface {
	Start() error
	Stop()
}

// Variáveis injetáveis para mocking
var (
	acceptorStarter = func(app quickfix.Application, settings *quickfix.Settings, logFactory quickfix.LogFactory) (acceptor, error) {
		return quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	}
	sqsClientFactory = func(ctx context.Context) (transport.SQSClient, error) {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("falha ao carregar configuração AWS: %w", err)
		}
		return sqs.NewFromConfig(cfg), nil
	}
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Abre a sessão FIX (acceptor) e a superfície de controle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configFlag(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, path)
		},
	}
}

// run contém a lógica principal testável
func run(ctx context.Context, cfgPath string) error {
	// 1. Carrega Configuração (Loader)
	cfg, err := loader.Load(ctx, cfgPath)
	if err != nil {
		return err
	}
	log := logger.Configure(cfg.Logging)

	// 2. Métricas
	provider, err := observability.SetupMetrics(cfg.Metrics, "fix_version:"+string(cfg.FixVersion))
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider); err != nil {
			log.Warn().Err(err).Msg("erro ao encerrar métricas")
		}
	}()

	deps := simulator.Deps{Metrics: metrics.NewProcessor(provider, log)}

	// 3. Dedup persistente (opcional)
	if cfg.Dedup.Redis.Enabled {
		client := dedup.DialRedis(cfg.Dedup.Redis.Addr, cfg.Dedup.Redis.Password)
		defer client.Close()
		deps.Store = dedup.NewRedisStore(client, cfg.Dedup.Redis.GetKey())
	}

	// 4. Journal (opcional)
	if cfg.Journal.Enabled {
		db, err := journal.Open(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		writer := journal.NewWriter(db, cfg.Journal.GetTable(), cfg.Journal.GetBuffer(), log)
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer writer.Close()
		deps.Journal = writer
	}

	ctl, err := simulator.New(cfg, deps, log)
	if err != nil {
		return err
	}

	// 5. Sessão FIX
	settings, err := readSettings(cfg.FixIni)
	if err != nil {
		return err
	}
	dict := loadDictionary(settings, log)

	acc, err := acceptorStarter(ctl, settings, logger.NewQuickfixLogFactory(log))
	if err != nil {
		return fmt.Errorf("erro ao criar acceptor FIX: %w", err)
	}

	// 6. Superfície de controle
	srv, err := transport.NewServer(cfg.HTTPServerHost, cfg.HTTPServerPort, ctl, dict, log)
	if err != nil {
		return err
	}

	var consumer *transport.SQSControl
	if cfg.Control.SQSQueueURL != "" {
		client, err := sqsClientFactory(ctx)
		if err != nil {
			return err
		}
		consumer = transport.NewSQSControl(client, cfg.Control.SQSQueueURL, ctl, log)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	if consumer != nil {
		g.Go(func() error { return consumer.Start(gctx) })
	}

	if err := acc.Start(); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("erro ao iniciar acceptor FIX: %w", err)
	}
	log.Info().Str("fix_ini", cfg.FixIni).Msg("acceptor FIX iniciado")

	err = g.Wait()
	acc.Stop()
	return err
}

func readSettings(path string) (*quickfix.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir %s: %w", path, err)
	}
	defer f.Close()

	settings, err := quickfix.ParseSettings(f)
	if err != nil {
		return nil, fmt.Errorf("erro ao interpretar %s: %w", path, err)
	}
	return settings, nil
}

// loadDictionary usa o dicionário de aplicação da sessão. Sem ele as rotas de dicionário ficam desligadas.
func loadDictionary(settings *quickfix.Settings, log zerolog.Logger) *dictionary.Dictionary {
	path := dictionaryPath(settings)
	if path == "" {
		log.Warn().Msg("DataDictionary não configurado, rotas de dicionário desativadas")
		return nil
	}

	dict, err := dictionary.Load(path)
	if err != nil {
		log.Warn().Err(err).Msg("dicionário indisponível, rotas de dicionário desativadas")
		return nil
	}
	log.Info().Str("path", path).Str("version", dict.Version).Msg("dicionário carregado")
	return dict
}

func dictionaryPath(settings *quickfix.Settings) string {
	candidates := []*quickfix.SessionSettings{settings.GlobalSettings()}
	for _, s := range settings.SessionSettings() {
		candidates = append(candidates, s)
	}

	for _, s := range candidates {
		for _, key := range []string{qfconfig.AppDataDictionary, qfconfig.DataDictionary} {
			if !s.HasSetting(key) {
				continue
			}
			if v, err := s.Setting(key); err == nil && v != "" {
				return v
			}
		}
	}
	return ""
}
