// Package routes mounts every HTTP endpoint on the router. Handlers live in
// app/controllers; this file only decides paths, names, and guards.
package routes

import (
	"context"
	"net/http"

	"github.com/adityaraj/bazario/app/controllers"
	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/graphql"
	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
	"github.com/adityaraj/bazario/pkg/middleware"
	"github.com/adityaraj/bazario/pkg/rbac"
	"github.com/adityaraj/bazario/pkg/response"
	"github.com/adityaraj/bazario/pkg/router"
	"github.com/adityaraj/bazario/pkg/ws"
)

// Deps carries everything the route table needs.
type Deps struct {
	Auth    *services.AuthService
	Google  *services.GoogleService
	Catalog *services.CatalogService
	Users   *services.UserService
	Orders  *services.OrderService
	Hub     *ws.Hub
}

// RegisterAPI wires the full route table.
func RegisterAPI(r *router.Router, d Deps) {
	authController := controllers.NewAuthController(d.Auth, d.Google)
	productController := controllers.NewProductController(d.Catalog)
	orderController := controllers.NewOrderController(d.Orders, d.Auth)
	userController := controllers.NewUserController(d.Users, d.Auth)

	authMW := middleware.Auth(d.Auth.VerifyToken)
	adminMW := rbac.HasRole(func(ctx context.Context, userID uint, role string) error {
		_, err := d.Auth.RequireRole(ctx, userID, role)
		return err
	}, models.RoleAdmin)

	api := r.Group("/api")

	api.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})

	// Identity.
	api.Post("/auth/register", "auth.register", authController.Register)
	api.Post("/auth/login", "auth.login", authController.Login)
	api.Get("/auth/google", "auth.google", authController.GoogleRedirect)
	api.Get("/auth/google/callback", "auth.google.callback", authController.GoogleCallback)

	// Public catalogue reads.
	api.Get("/products", "products.index", productController.List)
	api.Get("/products/{id}", "products.show", productController.Get)

	// Everything below needs a valid bearer token.
	authed := api.Group("", authMW)
	authed.Get("/me", "auth.me", authController.Me)
	authed.Post("/auth/logout", "auth.logout", authController.Logout)
	authed.Post("/me/password", "auth.password", authController.ChangePassword)

	authed.Post("/orders", "orders.place", orderController.Place)
	authed.Get("/orders", "orders.mine", orderController.ListMine)
	authed.Get("/orders/{id}", "orders.show", orderController.Get)
	authed.Patch("/orders/{id}/status", "orders.status", orderController.UpdateStatus)
	authed.Post("/orders/{id}/cancel", "orders.cancel", orderController.Cancel)

	authed.Get("/users/{id}", "users.show", userController.Get)
	authed.Patch("/users/{id}", "users.update", userController.UpdateProfile)

	// Admin surface. The role is re-read from the store per request.
	admin := authed.Group("/admin", adminMW)
	admin.Post("/products", "admin.products.create", productController.Create)
	admin.Put("/products/{id}", "admin.products.update", productController.Update)
	admin.Delete("/products/{id}", "admin.products.delete", productController.Delete)
	admin.Post("/products/{id}/image", "admin.products.image", productController.UploadImage)
	admin.Get("/orders", "admin.orders.index", orderController.ListAll)
	admin.Get("/users", "admin.users.index", userController.List)

	// Live order status stream.
	r.Get("/ws/orders", "ws.orders", func(w http.ResponseWriter, r *http.Request) {
		ws.Upgrade(w, r, d.Hub)
	}, authMW)

	// Read-only GraphQL view of the catalogue.
	if schema, err := catalogSchema(d.Catalog); err == nil {
		r.Handle(http.MethodPost, "/api/graphql", graphql.Handler(schema))
	} else {
		logger.Error("routes: graphql schema", "error", err)
	}

	r.Handle(http.MethodGet, "/metrics", metrics.Handler())
}
