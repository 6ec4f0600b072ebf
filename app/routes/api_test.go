package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/adityaraj/bazario/app/models"
	"github.com/adityaraj/bazario/app/repositories"
	"github.com/adityaraj/bazario/app/routes"
	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/pkg/auth"
	"github.com/adityaraj/bazario/pkg/router"
	"github.com/adityaraj/bazario/pkg/testkit"
	"github.com/adityaraj/bazario/pkg/ws"
)

// newAPI stands up the full route table against an in-memory database, so
// requests travel the same path they do in production: router, guards,
// controllers, services, store.
func newAPI(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	orders := repositories.NewOrderRepository(db)

	authSvc := services.NewAuthService(users, auth.NewIssuer("routes-test-secret", time.Hour), 4)
	catalog := services.NewCatalogService(products)

	r := routerWithAPI(routes.Deps{
		Auth:    authSvc,
		Google:  services.NewGoogleService(),
		Catalog: catalog,
		Users:   services.NewUserService(users),
		Orders:  services.NewOrderService(orders, products, catalog),
		Hub:     ws.NewHub(),
	})
	return r, db
}

func routerWithAPI(d routes.Deps) http.Handler {
	r := router.New()
	routes.RegisterAPI(r, d)
	return r.Handler()
}

// do sends one JSON request through the handler. An empty token leaves the
// Authorization header off entirely.
func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// registerUser runs the real signup endpoint and returns the bearer token.
func registerUser(t *testing.T, h http.Handler, name, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", email, rec.Code, rec.Body.String())
	}
	data := testkit.DecodeJSON(t, rec.Body.Bytes())["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}
	return token
}

func seedCatalogProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Category: "electronics", Stock: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newAPI(t)

	rec := do(t, h, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	testkit.AssertJSONBody(t, []byte(`{"status":200,"data":{"status":"ok"}}`), rec.Body.Bytes())
}

func TestRegisterLoginAndMe(t *testing.T) {
	h, _ := newAPI(t)
	token := registerUser(t, h, "Asha", "asha@example.com")

	rec := do(t, h, http.MethodGet, "/api/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d, body %s", rec.Code, rec.Body.String())
	}
	data := testkit.DecodeJSON(t, rec.Body.Bytes())["data"].(map[string]interface{})
	if data["email"] != "asha@example.com" {
		t.Errorf("me returned %v", data["email"])
	}
	if _, leaked := data["password_hash"]; leaked {
		t.Error("password hash leaked in /me payload")
	}

	// Fresh login works, garbage token does not.
	rec = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/me", "not-a-token", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status %d", rec.Code)
	}
}

func TestRegisterValidationErrorShape(t *testing.T) {
	h, _ := newAPI(t)

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "A", "email": "not-an-email", "password": "x",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := testkit.DecodeJSON(t, rec.Body.Bytes())
	errs, ok := body["errors"].(map[string]interface{})
	if !ok {
		t.Fatalf("no field errors in body: %s", rec.Body.String())
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, present := errs[field]; !present {
			t.Errorf("missing error for %s", field)
		}
	}
}

func TestPublicCatalogReads(t *testing.T) {
	h, db := newAPI(t)
	p := seedCatalogProduct(t, db, "Keyboard", 2499, 12)

	rec := do(t, h, http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("show: status %d, body %s", rec.Code, rec.Body.String())
	}
	data := testkit.DecodeJSON(t, rec.Body.Bytes())["data"].(map[string]interface{})
	if data["name"] != "Keyboard" {
		t.Errorf("show returned %v", data["name"])
	}

	if rec := do(t, h, http.MethodGet, "/api/products/999", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown product: status %d", rec.Code)
	}
}

func TestOrderFlowOverHTTP(t *testing.T) {
	h, db := newAPI(t)
	p := seedCatalogProduct(t, db, "Monitor", 8999, 5)
	buyer := registerUser(t, h, "Buyer", "buyer@example.com")

	// Orders need a token.
	rec := do(t, h, http.MethodPost, "/api/orders", "", map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": p.ID, "quantity": 2}},
		"payment_method": "upi",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous order: status %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/orders", buyer, map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": p.ID, "quantity": 2}},
		"payment_method": "upi",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place: status %d, body %s", rec.Code, rec.Body.String())
	}
	data := testkit.DecodeJSON(t, rec.Body.Bytes())["data"].(map[string]interface{})
	if data["status"] != models.StatusPending {
		t.Errorf("new order status = %v", data["status"])
	}
	if data["total_amount"].(float64) != 17998 {
		t.Errorf("total = %v", data["total_amount"])
	}
	orderID := uint(data["ID"].(float64))

	var stored models.Product
	if err := db.First(&stored, p.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.Stock != 3 {
		t.Errorf("stock after order = %d, want 3", stored.Stock)
	}

	// Owner sees it, a stranger gets an explicit denial.
	if rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), buyer, nil); rec.Code != http.StatusOK {
		t.Errorf("owner read: status %d", rec.Code)
	}
	stranger := registerUser(t, h, "Stranger", "stranger@example.com")
	if rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), stranger, nil); rec.Code != http.StatusForbidden {
		t.Errorf("stranger read: status %d, body %s", rec.Code, rec.Body.String())
	}

	// Cancellation restocks.
	if rec := do(t, h, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", orderID), buyer, nil); rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d, body %s", rec.Code, rec.Body.String())
	}
	if err := db.First(&stored, p.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.Stock != 5 {
		t.Errorf("stock after cancel = %d, want 5", stored.Stock)
	}
}

func TestOrderRejectsBadPayload(t *testing.T) {
	h, db := newAPI(t)
	p := seedCatalogProduct(t, db, "Webcam", 1999, 2)
	buyer := registerUser(t, h, "Buyer", "buyer@example.com")

	// Unknown payment method is caught before the service runs.
	rec := do(t, h, http.MethodPost, "/api/orders", buyer, map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": p.ID, "quantity": 1}},
		"payment_method": "cheque",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad payment method: status %d", rec.Code)
	}

	// Asking for more than the shelf holds is a conflict, not a 500.
	rec = do(t, h, http.MethodPost, "/api/orders", buyer, map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": p.ID, "quantity": 3}},
		"payment_method": "cod",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("oversell: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminGuard(t *testing.T) {
	h, db := newAPI(t)
	token := registerUser(t, h, "Riya", "riya@example.com")

	payload := map[string]interface{}{
		"name": "Speaker", "description": "Bluetooth speaker",
		"price": 3499, "category": "electronics", "stock": 7,
	}
	if rec := do(t, h, http.MethodPost, "/api/admin/products", token, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin create: status %d", rec.Code)
	}

	// Promote and retry: the role is re-read per request, no new token needed.
	if err := db.Model(&models.User{}).Where("email = ?", "riya@example.com").
		Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("promote: %v", err)
	}
	rec := do(t, h, http.MethodPost, "/api/admin/products", token, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/api/admin/orders", token, nil); rec.Code != http.StatusOK {
		t.Errorf("admin orders: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/admin/users", token, nil); rec.Code != http.StatusOK {
		t.Errorf("admin users: status %d", rec.Code)
	}
}

func TestGraphQLCatalogQuery(t *testing.T) {
	h, db := newAPI(t)
	p := seedCatalogProduct(t, db, "Headphones", 4999, 9)

	rec := do(t, h, http.MethodPost, "/api/graphql", "", map[string]interface{}{
		"query":     `query($id: Int!) { product(id: $id) { name price stock } }`,
		"variables": map[string]interface{}{"id": p.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("graphql: status %d, body %s", rec.Code, rec.Body.String())
	}
	body := testkit.DecodeJSON(t, rec.Body.Bytes())
	if errs, ok := body["errors"]; ok {
		t.Fatalf("graphql errors: %v", errs)
	}
	product := body["data"].(map[string]interface{})["product"].(map[string]interface{})
	if product["name"] != "Headphones" {
		t.Errorf("graphql product = %v", product)
	}
}
