package config

import (
	"sort"
	"time"
)

// AnyValue é o valor reservado de condição que sempre casa (nunca é comparado).
const AnyValue = "optional(none)"

// FixVersion identifica a versão do protocolo usada nas mensagens de saída.
type FixVersion string

const (
	FIX40 FixVersion = "FIX40"
	FIX41 FixVersion = "FIX41"
	FIX42 FixVersion = "FIX42"
	FIX43 FixVersion = "FIX43"
	FIX44 FixVersion = "FIX44"
	FIX50 FixVersion = "FIX50"
)

// MessageKind é o tipo de mensagem de resposta de um step.
type MessageKind string

const (
	ExecutionReport      MessageKind = "ExecutionReport"
	OrderCancelReject    MessageKind = "OrderCancelReject"
	TradingSessionStatus MessageKind = "TradingSessionStatus"
)

// FieldMap mapeia tag -> template (ou valor esperado, no caso das condições).
type FieldMap map[int]string

// SimulatorConfig representa a estrutura raiz do arquivo YAML do simulador.
type SimulatorConfig struct {
	FixVersion     FixVersion `yaml:"fix_version" validate:"required,oneof=FIX40 FIX41 FIX42 FIX43 FIX44 FIX50"`
	HTTPServerHost string     `yaml:"http_server_host" env:"FIXSIM_HTTP_HOST"`
	HTTPServerPort int        `yaml:"http_server_port" env:"FIXSIM_HTTP_PORT" validate:"gte=0,lte=65535"`
	Interval       int        `yaml:"interval" validate:"gt=0"`        // tick do scheduler em ms
	StressInterval int64      `yaml:"stress_interval" validate:"gt=0"` // tick do flood em µs
	FixIni         string     `yaml:"fix_ini" env:"FIXSIM_FIX_INI" validate:"required"`
	OrderIDPrefix  string     `yaml:"order_id_prefix"`

	Header               FieldMap        `yaml:"header"`
	LogonResponse        *LogonResponse  `yaml:"logon_response"`
	TradingSessionStatus []SessionStatus `yaml:"trading_session_status" validate:"dive"`
	CustomReply          []Rule          `yaml:"custom_reply" validate:"dive"`

	Dedup   DedupConf   `yaml:"dedup"`
	Logging LoggingConf `yaml:"logging"`
	Metrics MetricsConf `yaml:"metrics"`
	Journal JournalConf `yaml:"journal"`
	Control ControlConf `yaml:"control"`
}

// Rule é uma regra de resposta (custom_reply).
type Rule struct {
	CheckConditionHeader FieldMap           `yaml:"check_condition_header"`
	CheckConditionBody   FieldMap           `yaml:"check_condition_body"`
	CheckConditionExpr   string             `yaml:"check_condition_expr"`
	CheckClOrderID       FieldMap           `yaml:"check_cl_order_id"`
	DefaultReplyFlow     ReplyFlow          `yaml:"default_reply_flow"`
	SymbolsReplyFlow     []SymbolsReplyFlow `yaml:"symbols_reply_flow" validate:"dive"`
}

// ReplyFlow é a sequência ordenada de steps mais os campos comuns a todos eles.
type ReplyFlow struct {
	CommonFields FieldMap `yaml:"common_fields"`
	Steps        []Step   `yaml:"reply_flow" validate:"dive"`
}

// SymbolsReplyFlow sobrescreve o fluxo padrão para um conjunto de símbolos.
type SymbolsReplyFlow struct {
	Symbols   []string `yaml:"symbols"`
	ReplyFlow `yaml:",inline"`
}

// Step é uma resposta individual do fluxo.
type Step struct {
	Reply    FieldMap    `yaml:"reply"`
	Interval int         `yaml:"interval"` // ms; <= 0 envia imediatamente
	MsgType  MessageKind `yaml:"msg_type" validate:"omitempty,oneof=ExecutionReport OrderCancelReject"`
}

// SessionStatus é uma entrada do replay de status de sessão enviado no logon.
type SessionStatus struct {
	Reply    FieldMap `yaml:"reply"`
	Interval int      `yaml:"interval"`
}

// LogonResponse é a mensagem customizada enviada quando um Logon é recebido.
type LogonResponse struct {
	MsgType string   `yaml:"msgtype" validate:"required"`
	Reply   FieldMap `yaml:"reply"`
}

type DedupConf struct {
	Retention     string    `yaml:"retention"`      // Ex: "24h"
	SweepInterval string    `yaml:"sweep_interval"` // Ex: "10m"
	Redis         RedisConf `yaml:"redis"`
}

type RedisConf struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" env:"FIXSIM_REDIS_ADDR" validate:"required_if=Enabled true"`
	Password string `yaml:"password" env:"FIXSIM_REDIS_PASSWORD"`
	Key      string `yaml:"key"`
}

type LoggingConf struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" env:"FIXSIM_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf `yaml:"datadog"`
}

type DatadogConf struct {
	Enabled   bool   `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace"`
}

type JournalConf struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn" env:"FIXSIM_JOURNAL_DSN" validate:"required_if=Enabled true"`
	Table   string `yaml:"table"`
	Buffer  int    `yaml:"buffer" validate:"gte=0"`
}

type ControlConf struct {
	SQSQueueURL string `yaml:"sqs_queue_url" env:"FIXSIM_CONTROL_QUEUE"`
}

// Kind retorna o tipo da mensagem do step (ExecutionReport quando omitido).
func (s Step) Kind() MessageKind {
	if s.MsgType == "" {
		return ExecutionReport
	}
	return s.MsgType
}

// Delay retorna o intervalo do step como duração.
func (s Step) Delay() time.Duration {
	return time.Duration(s.Interval) * time.Millisecond
}

// ConditionCount é a especificidade da regra usada na ordenação.
func (r Rule) ConditionCount() int {
	n := len(r.CheckConditionHeader) + len(r.CheckConditionBody)
	if r.CheckConditionExpr != "" {
		n++
	}
	return n
}

// SortRules ordena as regras da mais específica para a menos específica (estável).
func (c *SimulatorConfig) SortRules() {
	sort.SliceStable(c.CustomReply, func(i, j int) bool {
		return c.CustomReply[i].ConditionCount() > c.CustomReply[j].ConditionCount()
	})
}

func (c *SimulatorConfig) TickInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

func (c *SimulatorConfig) FloodInterval() time.Duration {
	return time.Duration(c.StressInterval) * time.Microsecond
}

func (c *SimulatorConfig) GetOrderIDPrefix() string {
	if c.OrderIDPrefix == "" {
		return "fixsim"
	}
	return c.OrderIDPrefix
}

func (d DedupConf) GetRetention() time.Duration {
	v, err := time.ParseDuration(d.Retention)
	if err != nil || v <= 0 {
		return 24 * time.Hour
	}
	return v
}

func (d DedupConf) GetSweepInterval() time.Duration {
	v, err := time.ParseDuration(d.SweepInterval)
	if err != nil || v <= 0 {
		return 10 * time.Minute
	}
	return v
}

func (j JournalConf) GetTable() string {
	if j.Table == "" {
		return "fixsim_journal"
	}
	return j.Table
}

func (j JournalConf) GetBuffer() int {
	if j.Buffer <= 0 {
		return 4096
	}
	return j.Buffer
}

func (r RedisConf) GetKey() string {
	if r.Key == "" {
		return "fixsim:orders"
	}
	return r.Key
}
