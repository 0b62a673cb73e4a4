package injector

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Regex para capturar padrões ${tipo.chave}
// Ex: ${env.FIXSIM_REDIS_ADDR}, ${ssm./fixsim/redis}, ${secret.fixsim#password}
var pattern = regexp.MustCompile(`\$\{(env|ssm|secret)\.([^}]+)\}`)

type Injector struct {
	aws *awsSources
}

type Option func(*Injector)

// WithSSM substitui o client do Parameter Store (testes).
func WithSSM(c SSMClient) Option {
	return func(i *Injector) { i.aws.ssm = c }
}

// WithSecrets substitui o client do Secrets Manager (testes).
func WithSecrets(c SecretsClient) Option {
	return func(i *Injector) { i.aws.secrets = c }
}

func New(opts ...Option) *Injector {
	i := &Injector{aws: &awsSources{region: os.Getenv("AWS_REGION")}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target deve ser um ponteiro para struct não nulo")
	}
	return i.injectRecursive(ctx, v.Elem())
}

func (i *Injector) injectRecursive(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for k := 0; k < t.NumField(); k++ {
			field := t.Field(k)
			value := v.Field(k)

			// 1. Processa Tags (env:"...")
			if err := i.processStructTags(field, value); err != nil {
				return err
			}

			// 2. Processa Strings com Interpolação "${...}"
			if value.Kind() == reflect.String && value.CanSet() {
				newValue, err := i.interpolateString(ctx, value.String())
				if err != nil {
					return fmt.Errorf("campo %s: %w", field.Name, err)
				}
				value.SetString(newValue)
			}

			// 3. Recursão
			if value.CanSet() || value.Kind() == reflect.Ptr {
				if err := i.injectRecursive(ctx, value); err != nil {
					return err
				}
			}
		}

	case reflect.Map:
		if !v.IsNil() {
			return i.injectMap(ctx, v)
		}

	case reflect.Ptr:
		if !v.IsNil() {
			return i.injectRecursive(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := i.injectRecursive(ctx, v.Index(j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// processStructTags aplica variáveis de ambiente declaradas com env:"..."
func (i *Injector) processStructTags(field reflect.StructField, value reflect.Value) error {
	if !value.CanSet() {
		return nil
	}
	if tag := field.Tag.Get("env"); tag != "" {
		if val, exists := os.LookupEnv(tag); exists {
			if err := setField(value, val); err != nil {
				return fmt.Errorf("variável %s: %w", tag, err)
			}
		}
	}
	return nil
}

// interpolateString realiza a substituição baseada em Regex
func (i *Injector) interpolateString(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var err error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		// match é algo como "${env.VAR_NAME}"
		content := match[2 : len(match)-1]
		parts := strings.SplitN(content, ".", 2)
		if len(parts) != 2 {
			return match
		}

		val, resolveErr := i.fetchValue(ctx, parts[0], parts[1])
		if resolveErr != nil {
			err = resolveErr
			return match
		}
		return val
	})

	return result, err
}

// injectMap interpola valores string de qualquer mapa (incluindo os mapas tag -> template)
// e desce em valores aninhados.
func (i *Injector) injectMap(ctx context.Context, v reflect.Value) error {
	type update struct {
		key reflect.Value
		val string
	}
	elemType := v.Type().Elem()
	var updates []update

	iter := v.MapRange()
	for iter.Next() {
		elem := iter.Value()
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		if !elem.IsValid() {
			continue
		}

		switch elem.Kind() {
		case reflect.String:
			newVal, err := i.interpolateString(ctx, elem.String())
			if err != nil {
				return fmt.Errorf("chave %v: %w", iter.Key().Interface(), err)
			}
			if newVal != elem.String() {
				updates = append(updates, update{iter.Key(), newVal})
			}
		case reflect.Map:
			if err := i.injectMap(ctx, elem); err != nil {
				return err
			}
		}
	}

	for _, u := range updates {
		nv := reflect.ValueOf(u.val)
		if elemType.Kind() == reflect.String {
			nv = nv.Convert(elemType)
		}
		v.SetMapIndex(u.key, nv)
	}
	return nil
}

// fetchValue centraliza a busca de dados
func (i *Injector) fetchValue(ctx context.Context, sourceType, key string) (string, error) {
	switch sourceType {
	case "env":
		// variável ausente resolve para vazio
		return os.Getenv(key), nil
	case "ssm":
		return i.aws.parameter(ctx, key)
	case "secret":
		return i.aws.secret(ctx, key)
	}
	return "", fmt.Errorf("origem desconhecida: %s", sourceType)
}

func setField(field reflect.Value, val string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("inteiro inválido %q", val)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("booleano inválido %q", val)
		}
		field.SetBool(b)
	}
	return nil
}
