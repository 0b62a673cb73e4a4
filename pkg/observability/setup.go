package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/metrics"
)

const defaultNamespace = "fixsim."

// NoopProvider é um placeholder para quando métricas estão desabilitadas.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Histogram(name string, value float64, tags []string) error { return nil }

// DatadogProvider adapta a lib oficial do Datadog para nossa interface.
type DatadogProvider struct {
	client statsd.ClientInterface
}

func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

// Close descarrega o buffer do statsd.
func (d *DatadogProvider) Close() error {
	return d.client.Close()
}

// SetupMetrics inicializa o provedor correto baseado no YAML.
// As tags globais (ex: "fix_version:FIX44") acompanham todas as métricas.
func SetupMetrics(cfg config.MetricsConf, globalTags ...string) (metrics.Provider, error) {
	if !cfg.Datadog.Enabled {
		return &NoopProvider{}, nil
	}

	namespace := cfg.Datadog.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	} else if !strings.HasSuffix(namespace, ".") {
		namespace += "."
	}

	opts := []statsd.Option{
		statsd.WithNamespace(namespace),
		statsd.WithTags(globalTags),
	}

	client, err := statsd.New(cfg.Datadog.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no datadog statsd: %w", err)
	}

	return &DatadogProvider{client: client}, nil
}

// Shutdown fecha o provedor quando ele mantém recursos abertos.
func Shutdown(p metrics.Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
