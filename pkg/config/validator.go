package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raywall/fixsim/pkg/fixmsg"
	"github.com/raywall/fixsim/pkg/template"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *SimulatorConfig) error {
	// 1. Validação Estrutural (Tags do struct: required, oneof, etc)
	if err := cv.validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}

	// 2. Validação Semântica (templates, versão x tipo de mensagem)
	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("erro de validação semântica: %w", err)
	}

	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *SimulatorConfig) error {
	var errs []error
	version := string(cfg.FixVersion)

	// overrides de header são literais (só bool: é convertido), sem templates
	errs = append(errs, checkTags("header", cfg.Header)...)

	if cfg.LogonResponse != nil {
		errs = append(errs, checkFields("logon_response.reply", cfg.LogonResponse.Reply)...)
	}

	if len(cfg.TradingSessionStatus) > 0 && !fixmsg.Supports(version, fixmsg.TradingSessionStatus) {
		errs = append(errs, fmt.Errorf("trading_session_status: %w (%s)", fixmsg.ErrUnsupported, version))
	}
	for i, tss := range cfg.TradingSessionStatus {
		// o replay envia os valores literais, sem templates
		if len(tss.Reply) == 0 {
			errs = append(errs, fmt.Errorf("trading_session_status[%d]: reply vazio", i))
		}
	}

	for i, rule := range cfg.CustomReply {
		prefix := fmt.Sprintf("custom_reply[%d]", i)
		errs = append(errs, checkFields(prefix+".check_cl_order_id", rule.CheckClOrderID)...)
		errs = append(errs, checkFlow(prefix+".default_reply_flow", version, rule.DefaultReplyFlow)...)

		for j, sf := range rule.SymbolsReplyFlow {
			sp := fmt.Sprintf("%s.symbols_reply_flow[%d]", prefix, j)
			if len(sf.Symbols) == 0 {
				errs = append(errs, fmt.Errorf("%s: lista de símbolos vazia", sp))
			}
			errs = append(errs, checkFlow(sp, version, sf.ReplyFlow)...)
		}
	}

	return errors.Join(errs...)
}

func checkFlow(path, version string, flow ReplyFlow) []error {
	errs := checkFields(path+".common_fields", flow.CommonFields)
	for i, step := range flow.Steps {
		sp := fmt.Sprintf("%s.reply_flow[%d]", path, i)
		if !fixmsg.Supports(version, string(step.Kind())) {
			errs = append(errs, fmt.Errorf("%s: %w (%s em %s)", sp, fixmsg.ErrUnsupported, step.Kind(), version))
		}
		errs = append(errs, checkFields(sp+".reply", step.Reply)...)
	}
	return errs
}

func checkTags(path string, fields FieldMap) []error {
	tags := make([]int, 0, len(fields))
	for tag := range fields {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	var errs []error
	for _, tag := range tags {
		if tag <= 0 {
			errs = append(errs, fmt.Errorf("%s: tag inválida %d", path, tag))
		}
	}
	return errs
}

// checkFields valida tags e templates de um mapa, em ordem de tag para mensagens estáveis.
func checkFields(path string, fields FieldMap) []error {
	tags := make([]int, 0, len(fields))
	for tag := range fields {
		tags = append(tags, tag)
	}
	sort.Ints(tags)

	var errs []error
	for _, tag := range tags {
		if tag <= 0 {
			errs = append(errs, fmt.Errorf("%s: tag inválida %d", path, tag))
			continue
		}
		if _, err := template.Parse(fields[tag]); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", path, tag, err))
		}
	}
	return errs
}
