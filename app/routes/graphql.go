package routes

import (
	gql "github.com/graphql-go/graphql"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/graphql"
)

// catalogSchema builds the read-only GraphQL view of the catalogue.
// Mutations stay on the REST surface where the admin guard lives.
func catalogSchema(catalog *services.CatalogService) (gql.Schema, error) {
	productType := gql.NewObject(gql.ObjectConfig{
		Name: "Product",
		Fields: gql.Fields{
			"id": &gql.Field{
				Type: gql.Int,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).ID, nil
				},
			},
			"name": &gql.Field{
				Type: gql.String,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).Name, nil
				},
			},
			"description": &gql.Field{
				Type: gql.String,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).Description, nil
				},
			},
			"price": &gql.Field{
				Type: gql.Float,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).Price, nil
				},
			},
			"category": &gql.Field{
				Type: gql.String,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).Category, nil
				},
			},
			"stock": &gql.Field{
				Type: gql.Int,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).Stock, nil
				},
			},
			"imageUrl": &gql.Field{
				Type: gql.String,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Product).ImageURL, nil
				},
			},
		},
	})

	rootQuery := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"product": &gql.Field{
				Type: productType,
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(int)
					return catalog.GetProduct(p.Context, uint(id))
				},
			},
			"products": &gql.Field{
				Type: gql.NewList(productType),
				Args: gql.FieldConfigArgument{
					"category": &gql.ArgumentConfig{Type: gql.String},
					"page":     &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 1},
					"limit":    &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 20},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					category, _ := p.Args["category"].(string)
					page, _ := p.Args["page"].(int)
					limit, _ := p.Args["limit"].(int)
					products, _, err := catalog.ListProducts(p.Context, category, page, limit)
					return products, err
				},
			},
		},
	})

	return graphql.NewSchema(rootQuery)
}
