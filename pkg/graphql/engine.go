package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/quickfixgo/quickfix"
	"github.com/raywall/fixsim/pkg/dictionary"
)

// Controller é o subconjunto do simulador consultado e alterado pelo GraphQL.
type Controller interface {
	Pause(flag bool)
	Paused() bool
	StopFlood()
	FloodRunning() bool
	ActiveSession() (quickfix.SessionID, bool)
}

// GraphQLEngine expõe o dicionário FIX e o estado operacional do simulador.
type GraphQLEngine struct {
	Schema graphql.Schema
}

// NewGraphQLEngine monta o schema. Sem dicionário, as consultas de tags e interfaces retornam erro.
func NewGraphQLEngine(dict *dictionary.Dictionary, ctl Controller) (*GraphQLEngine, error) {
	schema, err := buildSchema(&resolvers{dict: dict, ctl: ctl})
	if err != nil {
		return nil, err
	}
	return &GraphQLEngine{Schema: schema}, nil
}

func (ge *GraphQLEngine) Execute(ctx context.Context, query string, variables map[string]interface{}) *graphql.Result {
	params := graphql.Params{
		Schema:         ge.Schema,
		RequestString:  query,
		VariableValues: variables,
		Context:        ctx,
	}
	return graphql.Do(params)
}
