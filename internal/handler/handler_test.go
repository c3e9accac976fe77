package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/testutil"
)

// memoryTokenStore keeps revoked token ids in process. A non-nil writeErr
// makes every Revoke fail.
type memoryTokenStore struct {
	mu       sync.Mutex
	revoked  map[string]bool
	writeErr error
}

func (s *memoryTokenStore) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.revoked[tokenID] = true
	return nil
}

func (s *memoryTokenStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[tokenID], nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newTestServerWithStore(t, &memoryTokenStore{revoked: map[string]bool{}})
}

func newTestServerWithStore(t *testing.T, tokenStore auth.TokenStoreInterface) *echo.Echo {
	t.Helper()

	gormDB := testutil.NewDB(t)
	log := testutil.Logger()
	cfg := &config.Config{
		CORSOrigins:   []string{"*"},
		AuthRateLimit: 1000,
		AuthRateBurst: 1000,
	}

	userRepo := repository.NewUserRepository(gormDB)
	categoryRepo := repository.NewCategoryRepository(gormDB)
	productRepo := repository.NewProductRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)

	jwtService := auth.NewJWTService("test-secret", time.Hour)

	e := echo.New()
	router.Register(e, cfg, log, router.Handlers{
		Auth:     handler.NewAuthHandler(service.NewAuthService(userRepo, jwtService, tokenStore)),
		User:     handler.NewUserHandler(service.NewUserService(userRepo)),
		Category: handler.NewCategoryHandler(service.NewCategoryService(categoryRepo, nil)),
		Product:  handler.NewProductHandler(service.NewProductService(productRepo, categoryRepo, nil)),
		Order:    handler.NewOrderHandler(service.NewOrderService(orderRepo, productRepo, userRepo)),
		Health:   handler.NewHealthHandler(gormDB, nil, log),
	}, auth.Middleware(jwtService, tokenStore))
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup registers a user and returns a bearer token for it.
func signup(t *testing.T, e *echo.Echo, name, email string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/register", "", map[string]string{"name": name, "email": email, "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createCategory(t *testing.T, e *echo.Echo, token, name string) uint {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/category", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	category := decode(t, rec)["category"].(map[string]interface{})
	return uint(category["id"].(float64))
}

func createProduct(t *testing.T, e *echo.Echo, token, name string, categoryID uint) uint {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/product", token, map[string]interface{}{
		"name": name, "description": name + " description", "price": 10, "stock": 5, "categoryId": categoryID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode(t, rec)["product"].(map[string]interface{})
	return uint(product["id"].(float64))
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/api/register", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "user registered successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = do(t, e, http.MethodPost, "/api/register", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec)["code"])

	rec = do(t, e, http.MethodPost, "/api/register", "", map[string]string{"email": "noname@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["code"])

	wrongPassword := do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "nope"})
	unknownEmail := do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "ghost@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	rec = do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password is required", decode(t, rec)["error"])

	rec = do(t, e, http.MethodPost, "/api/register", "", map[string]string{"name": "Eve", "email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "email must be a valid email", body["error"])
	assert.NotContains(t, body["error"], "RegisterRequest")

	rec = do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])
}

func TestAuthGate_RejectsMissingAndInvalidTokens(t *testing.T) {
	e := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/profile"},
		{http.MethodPost, "/api/category"},
		{http.MethodPost, "/api/product"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders"},
		{http.MethodDelete, "/api/order/1"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := do(t, e, route.method, route.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = do(t, e, route.method, route.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])
		})
	}
}

func TestProfile_IsolatedPerCaller(t *testing.T) {
	e := newTestServer(t)
	tokenA := signup(t, e, "Alice", "alice@example.com")
	tokenB := signup(t, e, "Bob", "bob@example.com")

	rec := do(t, e, http.MethodGet, "/api/profile", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob@example.com", decode(t, rec)["email"])

	rec = do(t, e, http.MethodPut, "/api/profile", tokenB, map[string]string{"name": "Robert"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Robert", decode(t, rec)["user"].(map[string]interface{})["name"])

	rec = do(t, e, http.MethodPut, "/api/profile", tokenB, map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPut, "/api/profile", tokenB, map[string]string{"email": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email", decode(t, rec)["error"])

	rec = do(t, e, http.MethodGet, "/api/profile", tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profileA := decode(t, rec)
	assert.Equal(t, "Alice", profileA["name"])
	assert.Equal(t, "alice@example.com", profileA["email"])

	rec = do(t, e, http.MethodDelete, "/api/profile", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Bob's token now names a missing user; Alice is untouched.
	rec = do(t, e, http.MethodGet, "/api/profile", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodGet, "/api/profile", tokenA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfile_BlankFieldsLeaveProfileUnchanged(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Ada", "ada@example.com")

	for _, body := range []map[string]string{
		{"email": ""},
		{"email": "   "},
		{"name": "", "email": "", "password": ""},
	} {
		rec := do(t, e, http.MethodPut, "/api/profile", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		user := decode(t, rec)["user"].(map[string]interface{})
		assert.Equal(t, "Ada", user["name"])
		assert.Equal(t, "ada@example.com", user["email"])
	}

	// the old password still works
	rec := do(t, e, http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCategory_DeleteCountsProductsExactly(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Admin", "admin@example.com")

	empty := createCategory(t, e, token, "Empty")
	rec := do(t, e, http.MethodDelete, fmt.Sprintf("/api/category/%d", empty), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "category deleted successfully", decode(t, rec)["message"])

	used := createCategory(t, e, token, "Used")
	createProduct(t, e, token, "Widget", used)
	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/category/%d", used), token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec)["code"])

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/category/%d", empty), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/category/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPut, fmt.Sprintf("/api/category/%d", used), token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/category", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decodeList(t, rec)
	require.Len(t, categories, 1)
	assert.Equal(t, "Renamed", categories[0]["name"])
}

func TestProduct_RoundTrip(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Admin", "admin@example.com")
	categoryID := createCategory(t, e, token, "Gadgets")

	rec := do(t, e, http.MethodPost, "/api/product", token, map[string]interface{}{
		"name": "X", "price": 10, "stock": 5, "categoryId": categoryID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := uint(decode(t, rec)["product"].(map[string]interface{})["id"].(float64))
	path := fmt.Sprintf("/api/product/%d", id)

	rec = do(t, e, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode(t, rec)
	assert.Equal(t, "X", product["name"])
	assert.Equal(t, 10.0, product["price"])
	assert.Equal(t, 5.0, product["stock"])
	assert.Equal(t, float64(categoryID), product["categoryId"])

	rec = do(t, e, http.MethodPut, path, token, map[string]interface{}{"price": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product = decode(t, rec)
	assert.Equal(t, 20.0, product["price"])
	assert.Equal(t, "X", product["name"])
	assert.Equal(t, 5.0, product["stock"])
	assert.Equal(t, float64(categoryID), product["categoryId"])

	rec = do(t, e, http.MethodPost, "/api/product", token, map[string]interface{}{"name": "Y", "price": 1, "stock": 1, "categoryId": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/product", "", map[string]interface{}{"name": "Z", "price": 1, "stock": 1, "categoryId": categoryID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodPut, path, token, map[string]interface{}{"stock": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_LinkExactlyRequestedProducts(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Buyer", "buyer@example.com")
	categoryID := createCategory(t, e, token, "Misc")
	var ids []uint
	for _, name := range []string{"one", "two", "three", "four"} {
		ids = append(ids, createProduct(t, e, token, name, categoryID))
	}

	rec := do(t, e, http.MethodPost, "/api/orders", token, map[string]interface{}{"productIds": ids[:3]})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]interface{})
	orderID := uint(order["id"].(float64))

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode(t, rec)["products"].([]interface{})
	require.Len(t, products, 3)
	for i, p := range products {
		assert.Equal(t, float64(ids[i]), p.(map[string]interface{})["id"])
	}

	// "products" is an accepted alias
	rec = do(t, e, http.MethodPost, "/api/orders", token, map[string]interface{}{"products": []uint{ids[3], ids[3]}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["order"].(map[string]interface{})["products"], 1)

	for name, body := range map[string]string{
		"empty list":        `{"productIds": []}`,
		"missing list":      `{}`,
		"not identifiers":   `{"productIds": ["a", "b"]}`,
		"negative id":       `{"productIds": [-1]}`,
		"dangling id":       `{"productIds": [1, 999]}`,
		"not a list at all": `{"productIds": 3}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, "/api/orders", token, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["code"])
		})
	}

	rec = do(t, e, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 2)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/order/%d", orderID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order cancelled", decode(t, rec)["message"])

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_ProductsKeyKeptAfterProductsDeleted(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Buyer", "buyer@example.com")
	categoryID := createCategory(t, e, token, "Misc")
	productID := createProduct(t, e, token, "only", categoryID)

	rec := do(t, e, http.MethodPost, "/api/orders", token, map[string]interface{}{"productIds": []uint{productID}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := uint(decode(t, rec)["order"].(map[string]interface{})["id"].(float64))

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/product/%d", productID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode(t, rec)
	assert.Equal(t, float64(orderID), order["id"])
	require.Contains(t, order, "products")
	assert.Equal(t, []interface{}{}, order["products"])
}

func TestOrders_OtherUsersOrdersReadAsMissing(t *testing.T) {
	e := newTestServer(t)
	tokenA := signup(t, e, "Alice", "alice@example.com")
	tokenB := signup(t, e, "Bob", "bob@example.com")
	categoryID := createCategory(t, e, tokenA, "Misc")
	productID := createProduct(t, e, tokenA, "thing", categoryID)

	rec := do(t, e, http.MethodPost, "/api/orders", tokenA, map[string]interface{}{"productIds": []uint{productID}})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := uint(decode(t, rec)["order"].(map[string]interface{})["id"].(float64))

	foreignGet := do(t, e, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), tokenB, nil)
	absentGet := do(t, e, http.MethodGet, "/api/orders/9999", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, foreignGet.Code)
	assert.JSONEq(t, absentGet.Body.String(), foreignGet.Body.String())

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("/api/order/%d", orderID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/orders", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec))

	rec = do(t, e, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), tokenA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	e := newTestServer(t)
	token := signup(t, e, "Ada", "ada@example.com")

	rec := do(t, e, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_FailsWhenRevocationIsNotStored(t *testing.T) {
	e := newTestServerWithStore(t, &memoryTokenStore{
		revoked:  map[string]bool{},
		writeErr: errors.New("redis: connection refused"),
	})
	token := signup(t, e, "Ada", "ada@example.com")

	rec := do(t, e, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, rec.Body.String(), "logged out")
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestOperationalRoutes(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["database"])

	rec = do(t, e, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "storefront_http_requests_total"))

	rec = do(t, e, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}
