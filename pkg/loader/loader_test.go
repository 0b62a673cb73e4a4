package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockS3Loader struct {
	GetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (m *MockS3Loader) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(ctx, params, optFns...)
}

type MockDynamoLoader struct {
	GetItemFunc func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

func (m *MockDynamoLoader) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetItemFunc(ctx, params, optFns...)
}

const simulatorYAML = `
fix_version: FIX44
http_server_port: 2025
interval: 100
stress_interval: 1000
fix_ini: config/fix.ini
header:
  49: ${env.FIXSIM_TEST_SENDER}
custom_reply:
  - check_condition_header:
      35: D
    default_reply_flow:
      common_fields:
        11: input.11
        37: call.unique-order-id
      reply_flow:
        - reply:
            150: 0
            39: 0
        - reply:
            150: 2
            39: 2
          interval: 500
  - check_condition_header:
      35: D
    check_condition_body:
      55: PETR4
      54: optional(none)
    check_condition_expr: "body['38'] == '100'"
    check_cl_order_id:
      11: input.11
      150: 8
    default_reply_flow:
      reply_flow:
        - reply:
            150: 8
            58: bool:true
          msg_type: ExecutionReport
    symbols_reply_flow:
      - symbols: [PETR4, VALE3]
        reply_flow:
          - reply:
              150: 4
            msg_type: OrderCancelReject
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// --- Testes ---

func TestUniversalLoader_Load_Local(t *testing.T) {
	t.Setenv("FIXSIM_TEST_SENDER", "SIMULATOR")
	path := writeTemp(t, simulatorYAML)

	for _, source := range []string{path, "file://" + path} {
		cfg, err := NewUniversalLoader().Load(context.Background(), source)
		require.NoError(t, err, source)

		assert.Equal(t, config.FIX44, cfg.FixVersion)
		assert.Equal(t, "SIMULATOR", cfg.Header[49])
		require.Len(t, cfg.CustomReply, 2)

		// a regra com mais condições vem primeiro
		first := cfg.CustomReply[0]
		assert.Equal(t, 4, first.ConditionCount())
		assert.Equal(t, "PETR4", first.CheckConditionBody[55])
		assert.Equal(t, config.AnyValue, first.CheckConditionBody[54])
		assert.Equal(t, "bool:true", first.DefaultReplyFlow.Steps[0].Reply[58])
		assert.Equal(t, []string{"PETR4", "VALE3"}, first.SymbolsReplyFlow[0].Symbols)
		assert.Equal(t, config.OrderCancelReject, first.SymbolsReplyFlow[0].Steps[0].Kind())

		second := cfg.CustomReply[1]
		assert.Equal(t, "0", second.DefaultReplyFlow.Steps[0].Reply[150])
		assert.Equal(t, 500, second.DefaultReplyFlow.Steps[1].Interval)
		assert.Equal(t, "call.unique-order-id", second.DefaultReplyFlow.CommonFields[37])
	}
}

func TestUniversalLoader_Parse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "YAML malformado",
			yaml: "fix_version: [",
		},
		{
			name: "Versão inválida",
			yaml: strings.Replace(simulatorYAML, "FIX44", "FIX99", 1),
		},
		{
			name: "Expressão CEL inválida",
			yaml: strings.Replace(simulatorYAML, "body['38'] == '100'", "body['38'] +", 1),
		},
		{
			name: "Expressão CEL não booleana",
			yaml: strings.Replace(simulatorYAML, "body['38'] == '100'", "body['38']", 1),
		},
		{
			name: "Template inválido",
			yaml: strings.Replace(simulatorYAML, "11: input.11\n        37", "11: input.x\n        37", 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniversalLoader().Parse(context.Background(), []byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestUniversalLoader_Load_MissingFile(t *testing.T) {
	_, err := NewUniversalLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestUniversalLoader_S3(t *testing.T) {
	mockClient := &MockS3Loader{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			assert.Equal(t, "my-bucket", *params.Bucket)
			assert.Equal(t, "configs/simulator.yaml", *params.Key)
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(simulatorYAML)),
			}, nil
		},
	}

	loader := NewUniversalLoader(WithS3(mockClient))
	cfg, err := loader.Load(context.Background(), "s3://my-bucket/configs/simulator.yaml")

	require.NoError(t, err)
	assert.Len(t, cfg.CustomReply, 2)
}

func TestUniversalLoader_S3_Error(t *testing.T) {
	mockClient := &MockS3Loader{
		GetObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return nil, errors.New("NoSuchKey")
		},
	}

	_, err := NewUniversalLoader(WithS3(mockClient)).Load(context.Background(), "s3://b/k.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchKey")
}

func TestUniversalLoader_Dynamo(t *testing.T) {
	mockClient := &MockDynamoLoader{
		GetItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, "ConfigTable", *params.TableName)
			key := params.Key["Simulator"].(*types.AttributeValueMemberS).Value
			assert.Equal(t, "b3-uat", key)

			return &dynamodb.GetItemOutput{
				Item: map[string]types.AttributeValue{
					"yaml_body": &types.AttributeValueMemberS{Value: simulatorYAML},
				},
			}, nil
		},
	}

	loader := NewUniversalLoader(WithDynamo(mockClient))
	// Tabela=ConfigTable, PK_Value=b3-uat, PK_Name=Simulator, Col=yaml_body
	cfg, err := loader.Load(context.Background(), "dynamodb://ConfigTable/b3-uat?pk=Simulator&col=yaml_body")

	require.NoError(t, err)
	assert.Equal(t, config.FIX44, cfg.FixVersion)
}

func TestUniversalLoader_Dynamo_ItemNotFound(t *testing.T) {
	mockClient := &MockDynamoLoader{
		GetItemFunc: func(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{}, nil
		},
	}

	_, err := NewUniversalLoader(WithDynamo(mockClient)).Load(context.Background(), "dynamodb://T/k")
	assert.Error(t, err)
}

func TestUniversalLoader_Load_Example(t *testing.T) {
	t.Setenv("FIXSIM_REDIS_ADDR", "localhost:6379")

	cfg, err := NewUniversalLoader().Load(context.Background(), "../../examples/simulator/simulator.yaml")
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Dedup.Redis.Addr)
	require.Len(t, cfg.CustomReply, 3)
	// guarda CEL conta como condição e sobe a regra de limite para o topo
	assert.NotEmpty(t, cfg.CustomReply[0].CheckConditionExpr)
	assert.Len(t, cfg.TradingSessionStatus, 2)
	assert.Equal(t, "U1", cfg.LogonResponse.MsgType)
}
