package loader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/raywall/fixsim/pkg/config"
	"github.com/raywall/fixsim/pkg/config/injector"
	"github.com/raywall/fixsim/pkg/rules"
	"gopkg.in/yaml.v3"
)

// Load carrega, injeta e valida a configuração do simulador a partir de qualquer fonte suportada.
func Load(ctx context.Context, source string) (*config.SimulatorConfig, error) {
	return NewUniversalLoader().Load(ctx, source)
}

// --- Interfaces para Mocking ---

type S3Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type DynamoGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// UniversalLoader suporta múltiplas fontes de configuração (Local, S3, DynamoDB).
type UniversalLoader struct {
	validator *config.ConfigValidator
	injector  *injector.Injector
	s3        S3Downloader
	dynamo    DynamoGetter
}

type Option func(*UniversalLoader)

func WithS3(c S3Downloader) Option {
	return func(ul *UniversalLoader) { ul.s3 = c }
}

func WithDynamo(c DynamoGetter) Option {
	return func(ul *UniversalLoader) { ul.dynamo = c }
}

func WithInjector(i *injector.Injector) Option {
	return func(ul *UniversalLoader) { ul.injector = i }
}

// NewUniversalLoader cria uma nova instância. Clients AWS não informados são criados sob demanda.
func NewUniversalLoader(opts ...Option) *UniversalLoader {
	ul := &UniversalLoader{
		validator: config.NewValidator(),
		injector:  injector.New(),
	}
	for _, opt := range opts {
		opt(ul)
	}
	return ul
}

// Load detecta o esquema da fonte e carrega a configuração.
func (ul *UniversalLoader) Load(ctx context.Context, source string) (*config.SimulatorConfig, error) {
	var rawData []byte
	var err error

	switch {
	case strings.HasPrefix(source, "s3://"):
		if ul.s3 == nil {
			cfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
			if cfgErr != nil {
				return nil, fmt.Errorf("falha ao carregar configuração AWS: %w", cfgErr)
			}
			ul.s3 = s3.NewFromConfig(cfg)
		}
		rawData, err = ul.loadFromS3(ctx, source)

	case strings.HasPrefix(source, "dynamodb://"):
		if ul.dynamo == nil {
			cfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
			if cfgErr != nil {
				return nil, fmt.Errorf("falha ao carregar configuração AWS: %w", cfgErr)
			}
			ul.dynamo = dynamodb.NewFromConfig(cfg)
		}
		rawData, err = ul.loadFromDynamoDB(ctx, source)

	default:
		rawData, err = ul.loadFromFile(source)
	}

	if err != nil {
		return nil, fmt.Errorf("falha leitura config (%s): %w", source, err)
	}

	return ul.Parse(ctx, rawData)
}

// Parse executa unmarshal, injeção, validação e ordenação das regras sobre um YAML já lido.
func (ul *UniversalLoader) Parse(ctx context.Context, data []byte) (*config.SimulatorConfig, error) {
	var cfg config.SimulatorConfig

	// 1. Unmarshal (YAML -> Struct)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("YAML malformado: %w", err)
	}

	// 2. Injection (Env/Secrets/SSM)
	if err := ul.injector.Inject(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("falha na injeção de variáveis: %w", err)
	}

	// 3. Validation
	if err := ul.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validação da configuração falhou: %w", err)
	}
	if err := compileGuards(&cfg); err != nil {
		return nil, fmt.Errorf("validação da configuração falhou: %w", err)
	}

	// 4. Mais específica primeiro
	cfg.SortRules()
	return &cfg, nil
}

// compileGuards rejeita na carga expressões CEL que não compilam ou não retornam bool.
func compileGuards(cfg *config.SimulatorConfig) error {
	var rm *rules.RuleManager
	for i, r := range cfg.CustomReply {
		if r.CheckConditionExpr == "" {
			continue
		}
		if rm == nil {
			var err error
			if rm, err = rules.NewRuleManager(); err != nil {
				return err
			}
		}
		if _, err := rm.CompileProgram(r.CheckConditionExpr); err != nil {
			return fmt.Errorf("custom_reply[%d]: %w", i, err)
		}
	}
	return nil
}

// --- Estratégias de carregamento ---

func (ul *UniversalLoader) loadFromFile(path string) ([]byte, error) {
	// Suporta tanto "file://simulator.yaml" quanto apenas "simulator.yaml"
	return os.ReadFile(strings.TrimPrefix(path, "file://"))
}

func (ul *UniversalLoader) loadFromS3(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL S3 inválida: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	out, err := ul.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// loadFromDynamoDB lê dynamodb://tabela/chave?col=config&pk=id
func (ul *UniversalLoader) loadFromDynamoDB(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL DynamoDB inválida: %w", err)
	}

	tableName := u.Host
	pkValue := strings.TrimPrefix(u.Path, "/")

	colName := u.Query().Get("col")
	if colName == "" {
		colName = "config"
	}
	pkName := u.Query().Get("pk")
	if pkName == "" {
		pkName = "id"
	}

	out, err := ul.dynamo.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &tableName,
		Key: map[string]types.AttributeValue{
			pkName: &types.AttributeValueMemberS{Value: pkValue},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("item não encontrado no DynamoDB")
	}

	var itemMap map[string]interface{}
	if err := attributevalue.UnmarshalMap(out.Item, &itemMap); err != nil {
		return nil, err
	}

	content, ok := itemMap[colName].(string)
	if !ok {
		return nil, fmt.Errorf("coluna '%s' inválida ou vazia no DynamoDB", colName)
	}
	return []byte(content), nil
}
