package metrics

// Provider define o contrato para envio de métricas.
// Isso permite trocar Datadog por Prometheus ou Logging sem alterar a lógica do simulador.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition armazena os metadados da métrica (nome real, tipo).
type MetricDefinition struct {
	Name string
	Type MetricType
}

// IDs das métricas emitidas pelo simulador.
const (
	MessagesReceived  = "messages_received"
	MessagesUnmatched = "messages_unmatched"
	DuplicateOrders   = "duplicate_orders"
	DeliverySent      = "delivery_sent"
	DeliveryFailed    = "delivery_failed"
	DeliveryLag       = "delivery_lag"
	SchedulerPending  = "scheduler_pending"
	FloodSent         = "flood_sent"
	DedupSwept        = "dedup_swept"
)

// Definitions é o catálogo padrão: ID -> nome no backend e tipo.
var Definitions = map[string]MetricDefinition{
	MessagesReceived:  {Name: "messages.received", Type: TypeCount},
	MessagesUnmatched: {Name: "messages.unmatched", Type: TypeCount},
	DuplicateOrders:   {Name: "orders.duplicate", Type: TypeCount},
	DeliverySent:      {Name: "delivery.sent", Type: TypeCount},
	DeliveryFailed:    {Name: "delivery.failed", Type: TypeCount},
	DeliveryLag:       {Name: "delivery.lag_ms", Type: TypeHistogram},
	SchedulerPending:  {Name: "scheduler.pending", Type: TypeGauge},
	FloodSent:         {Name: "flood.sent", Type: TypeCount},
	DedupSwept:        {Name: "dedup.swept", Type: TypeCount},
}
