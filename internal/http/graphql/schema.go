// Package graphql serves a read-only GraphQL view of the geographic
// hierarchy:
//
//	{ province(code: "GP") { name municipalities { code wards { code memberCount } } } }
package graphql

import (
	"context"
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/aanand-mishra/membership-api/internal/storage"
	"github.com/aanand-mishra/membership-api/internal/types"
)

// Store is the part of storage the schema reads.
type Store interface {
	storage.GeoStore
	CountWardMembers(ctx context.Context, wardCode string) (int, error)
}

// notFoundAsNull turns a missing row into a null result instead of an
// error.
func notFoundAsNull(v any, err error) (any, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// NewSchema builds the schema over store.
func NewSchema(store Store) (graphql.Schema, error) {
	var provinceType, municipalityType, wardType *graphql.Object

	votingDistrictType := graphql.NewObject(graphql.ObjectConfig{
		Name: "VotingDistrict",
		Fields: graphql.Fields{
			"code": &graphql.Field{Type: graphql.String},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	provinceType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Province",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"code": &graphql.Field{Type: graphql.String},
				"name": &graphql.Field{Type: graphql.String},
				"municipalities": &graphql.Field{
					Type: graphql.NewList(municipalityType),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						prov := p.Source.(types.Province)
						return store.ListMunicipalities(p.Context, prov.Code)
					},
				},
			}
		}),
	})

	municipalityType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Municipality",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"code": &graphql.Field{Type: graphql.String},
				"name": &graphql.Field{Type: graphql.String},
				"provinceCode": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return p.Source.(types.Municipality).ProvinceCode, nil
					},
				},
				"province": &graphql.Field{
					Type: provinceType,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						m := p.Source.(types.Municipality)
						return notFoundAsNull(store.GetProvince(p.Context, m.ProvinceCode))
					},
				},
				"wards": &graphql.Field{
					Type: graphql.NewList(wardType),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						m := p.Source.(types.Municipality)
						return store.ListWards(p.Context, m.Code)
					},
				},
			}
		}),
	})

	wardType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Ward",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"code":   &graphql.Field{Type: graphql.String},
				"number": &graphql.Field{Type: graphql.Int},
				"municipalityCode": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return p.Source.(types.Ward).MunicipalityCode, nil
					},
				},
				"municipality": &graphql.Field{
					Type: municipalityType,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						w := p.Source.(types.Ward)
						return notFoundAsNull(store.GetMunicipality(p.Context, w.MunicipalityCode))
					},
				},
				"votingDistricts": &graphql.Field{
					Type: graphql.NewList(votingDistrictType),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return store.ListVotingDistricts(p.Context, p.Source.(types.Ward).Code)
					},
				},
				"memberCount": &graphql.Field{
					Type:        graphql.Int,
					Description: "Active members registered in the ward.",
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return store.CountWardMembers(p.Context, p.Source.(types.Ward).Code)
					},
				},
			}
		}),
	})

	codeArg := graphql.FieldConfigArgument{
		"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"provinces": &graphql.Field{
				Type: graphql.NewList(provinceType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return store.ListProvinces(p.Context)
				},
			},
			"province": &graphql.Field{
				Type: provinceType,
				Args: codeArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return notFoundAsNull(store.GetProvince(p.Context, p.Args["code"].(string)))
				},
			},
			"municipalities": &graphql.Field{
				Type: graphql.NewList(municipalityType),
				Args: graphql.FieldConfigArgument{
					"province": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return store.ListMunicipalities(p.Context, p.Args["province"].(string))
				},
			},
			"wards": &graphql.Field{
				Type: graphql.NewList(wardType),
				Args: graphql.FieldConfigArgument{
					"municipality": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return store.ListWards(p.Context, p.Args["municipality"].(string))
				},
			},
			"ward": &graphql.Field{
				Type: wardType,
				Args: codeArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return notFoundAsNull(store.GetWard(p.Context, p.Args["code"].(string)))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

// Handler serves the schema over HTTP (GET and POST, graphql-go/handler
// request formats).
func Handler(store Store) (http.Handler, error) {
	schema, err := NewSchema(store)
	if err != nil {
		return nil, err
	}
	return handler.New(&handler.Config{
		Schema: &schema,
		Pretty: true,
	}), nil
}
