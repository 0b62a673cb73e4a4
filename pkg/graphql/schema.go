package graphql

import (
	"github.com/graphql-go/graphql"
)

// Tipos do schema. Os resolvers devolvem map[string]interface{}, lidos pelo resolver padrão.
var (
	enumType = graphql.NewObject(graphql.ObjectConfig{
		Name: "FieldEnum",
		Fields: graphql.Fields{
			"value":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
		},
	})

	tagType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Tag",
		Description: "Tag definida no dicionário FIX",
		Fields: graphql.Fields{
			"number": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name":   &graphql.Field{Type: graphql.String},
			"type":   &graphql.Field{Type: graphql.String},
			"enums":  &graphql.Field{Type: graphql.NewList(enumType)},
		},
	})

	fieldType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"tag":      &graphql.Field{Type: graphql.Int},
			"type":     &graphql.Field{Type: graphql.String},
			"required": &graphql.Field{Type: graphql.Boolean},
			"enums":    &graphql.Field{Type: graphql.NewList(enumType)},
		},
	})

	interfaceType = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Interface",
		Description: "Campos de primeiro nível de um tipo de mensagem, obrigatórios primeiro",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"msgType":  &graphql.Field{Type: graphql.String},
			"fields":   &graphql.Field{Type: graphql.NewList(fieldType)},
			"skeleton": &graphql.Field{Type: graphql.String},
		},
	})

	statusType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Status",
		Fields: graphql.Fields{
			"paused":       &graphql.Field{Type: graphql.Boolean},
			"floodRunning": &graphql.Field{Type: graphql.Boolean},
			"session":      &graphql.Field{Type: graphql.String},
		},
	})
)

// buildSchema constrói o objeto Schema do GraphQL
func buildSchema(r *resolvers) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tag": &graphql.Field{
				Type:    tagType,
				Args:    graphql.FieldConfigArgument{"number": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: r.tag,
			},
			"tags": &graphql.Field{
				Type:    graphql.NewList(tagType),
				Resolve: r.tags,
			},
			"interface": &graphql.Field{
				Type:    interfaceType,
				Args:    graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}},
				Resolve: r.iface,
			},
			"interfaces": &graphql.Field{
				Type:    graphql.NewList(interfaceType),
				Resolve: r.ifaces,
			},
			"status": &graphql.Field{
				Type:    statusType,
				Resolve: r.status,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"pause": &graphql.Field{
				Type:    statusType,
				Args:    graphql.FieldConfigArgument{"flag": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)}},
				Resolve: r.pause,
			},
			"stopStress": &graphql.Field{
				Type:    statusType,
				Resolve: r.stopStress,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
