package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/raywall/fixsim/pkg/flood"
	"github.com/rs/zerolog"
)

var ErrUnknownAction = errors.New("ação de controle desconhecida")

// SQSClient define a interface necessária para o consumidor (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Command é o corpo JSON aceito na fila de controle:
//
//	{"action":"pause","flag":true}
//	{"action":"stress","batch":"55=PETR4,17=1\n55=VALE3,17=2"}
//	{"action":"close_stress"}
type Command struct {
	Action string `json:"action"`
	Flag   *bool  `json:"flag,omitempty"`
	Batch  string `json:"batch,omitempty"`
}

// SQSControl consome comandos operacionais de uma fila SQS, equivalentes às rotas HTTP.
type SQSControl struct {
	client   SQSClient
	queueURL string
	ctl      Controller
	retry    time.Duration
	logger   zerolog.Logger
}

func NewSQSControl(client SQSClient, queueURL string, ctl Controller, logger zerolog.Logger) *SQSControl {
	return &SQSControl{
		client:   client,
		queueURL: queueURL,
		ctl:      ctl,
		retry:    5 * time.Second,
		logger:   logger.With().Str("component", "sqs_control").Logger(),
	}
}

// Start faz long polling até o contexto ser cancelado.
func (s *SQSControl) Start(ctx context.Context) error {
	if s.queueURL == "" {
		s.logger.Warn().Msg("URL da fila SQS não configurada. Controle via SQS desativado.")
		return nil
	}

	s.logger.Info().Str("queue", s.queueURL).Msg("Monitorando fila SQS de controle")

	for {
		if ctx.Err() != nil {
			s.logger.Info().Msg("Parando monitoramento SQS")
			return nil
		}

		out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20, // Long polling
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Dur("retry", s.retry).Msg("Erro no SQS, nova tentativa")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.retry):
			}
			continue
		}

		for _, msg := range out.Messages {
			s.handle(ctx, msg)
		}
	}
}

// handle aplica o comando e sempre remove a mensagem; comandos inválidos não são reprocessados.
func (s *SQSControl) handle(ctx context.Context, msg types.Message) {
	var cmd Command
	err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &cmd)
	if err == nil {
		err = s.Apply(cmd)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", aws.ToString(msg.MessageId)).Msg("comando de controle descartado")
	} else {
		s.logger.Info().Str("action", cmd.Action).Msg("comando de controle aplicado")
	}

	if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		s.logger.Error().Err(err).Msg("falha ao remover mensagem da fila")
	}
}

func (s *SQSControl) Apply(cmd Command) error {
	switch cmd.Action {
	case "pause":
		if cmd.Flag == nil {
			return fmt.Errorf("pause: campo flag obrigatório")
		}
		s.ctl.Pause(*cmd.Flag)
	case "stress":
		batch, err := flood.ParseBatch(cmd.Batch)
		if err != nil {
			return err
		}
		s.ctl.StartFlood(batch)
	case "close_stress":
		s.ctl.StopFlood()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}
