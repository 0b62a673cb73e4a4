package injector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// awsSources cria os clients reais só quando a configuração referencia ssm/secret.
type awsSources struct {
	region  string
	once    sync.Once
	err     error
	ssm     SSMClient
	secrets SecretsClient
}

func (a *awsSources) init(ctx context.Context) error {
	a.once.Do(func() {
		if a.ssm != nil && a.secrets != nil {
			return
		}
		opts := []func(*config.LoadOptions) error{}
		if a.region != "" {
			opts = append(opts, config.WithRegion(a.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			a.err = fmt.Errorf("erro ao carregar configuração AWS: %w", err)
			return
		}
		if a.ssm == nil {
			a.ssm = ssm.NewFromConfig(cfg)
		}
		if a.secrets == nil {
			a.secrets = secretsmanager.NewFromConfig(cfg)
		}
	})
	return a.err
}

// parameter lê um parâmetro do Parameter Store, sempre com decrypt.
func (a *awsSources) parameter(ctx context.Context, path string) (string, error) {
	if err := a.init(ctx); err != nil {
		return "", err
	}
	decrypt := true
	out, err := a.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &path,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SSM GetParameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parâmetro %s sem valor", path)
	}
	return *out.Parameter.Value, nil
}

// secret lê um segredo. "nome#campo" extrai um campo de um segredo JSON.
func (a *awsSources) secret(ctx context.Context, ref string) (string, error) {
	if err := a.init(ctx); err != nil {
		return "", err
	}
	secretID, field, hasField := strings.Cut(ref, "#")

	out, err := a.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SecretsManager: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("segredo %s sem valor texto", secretID)
	}
	if !hasField {
		return *out.SecretString, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(*out.SecretString), &data); err != nil {
		return "", fmt.Errorf("segredo %s não é JSON: %w", secretID, err)
	}
	val, ok := data[field]
	if !ok {
		return "", fmt.Errorf("campo %s ausente no segredo %s", field, secretID)
	}
	return fmt.Sprintf("%v", val), nil
}
