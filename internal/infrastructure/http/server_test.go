package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/shop-cart-api/internal/app/service"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/auth"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/config"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		OTLP:   config.OTLPConfig{ServiceName: "shop-cart-api", Environment: "test", LogLevel: "error"},
		CORS:   config.CORSConfig{AllowedOrigin: "http://localhost:3000"},
	}

	telem, err := telemetry.NewNoOpTelemetry(&cfg.OTLP)
	require.NoError(t, err)

	tracer := telem.TracerProvider.Tracer("test")
	meter := telem.MeterProvider.Meter("test")
	logger := telem.Logger

	products := memory.NewProductRepository(tracer, logger)
	users := service.NewUserService(
		memory.NewUserRepository(tracer, logger),
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTManager("test-secret", time.Hour, "shop-cart-api"),
		tracer, meter, logger,
	)
	productService := service.NewProductService(products, tracer, meter, logger)
	cartService := service.NewCartService(memory.NewCartRepository(tracer, logger), products, tracer, meter, logger)

	srv := NewServer(cfg, Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Users:    handler.NewUserHandler(users, logger),
	}, users, logger, telem)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &apiClient{t: t, server: ts}
}

func (c *apiClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *apiClient) login(email string) {
	c.t.Helper()

	status, _ := c.do(http.MethodPost, "/api/users/register", map[string]string{
		"email": email, "password": "pw", "name": "Tester",
	})
	require.Equal(c.t, http.StatusCreated, status)

	status, body := c.do(http.MethodPost, "/api/users/login", map[string]string{
		"email": email, "password": "pw",
	})
	require.Equal(c.t, http.StatusOK, status)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(body, &resp))
	c.token = resp.Token
}

func (c *apiClient) createProduct(name string) string {
	c.t.Helper()

	status, body := c.do(http.MethodPost, "/api/products", map[string]any{"name": name, "price": 4.5})
	require.Equal(c.t, http.StatusCreated, status)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(c.t, json.Unmarshal(body, &resp))
	return resp.ID
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestServer_CartRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/add"},
		{http.MethodPost, "/api/cart/increase"},
		{http.MethodPost, "/api/cart/decrease"},
		{http.MethodDelete, "/api/cart/" + uuid.NewString()},
		{http.MethodDelete, "/api/cart"},
		{http.MethodGet, "/api/users/me"},
	}

	for _, rt := range routes {
		status, body := api.do(rt.method, rt.path, nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", rt.method, rt.path)
		assert.Equal(t, "unauthorized", decode[map[string]string](t, body)["error"])
	}

	api.token = "garbage"
	status, _ := api.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_CartLifecycle(t *testing.T) {
	api := newTestAPI(t)
	p1 := api.createProduct("Mug")
	api.login("owner@example.com")

	status, body := api.do(http.MethodPost, "/api/cart/add", map[string]any{"productId": p1, "quantity": 3})
	require.Equal(t, http.StatusOK, status, string(body))
	item := decode[map[string]any](t, body)
	assert.EqualValues(t, 3, item["quantity"])

	status, body = api.do(http.MethodPost, "/api/cart/add", map[string]any{"productId": p1, "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, decode[map[string]any](t, body)["quantity"])

	status, body = api.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	cart := decode[[]map[string]any](t, body)
	require.Len(t, cart, 1)
	product, ok := cart[0]["product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Mug", product["name"])

	status, body = api.do(http.MethodPost, "/api/cart/decrease", map[string]any{"productId": p1, "quantity": 5})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"productId": p1, "quantity": float64(0)}, decode[map[string]any](t, body))

	status, _ = api.do(http.MethodPost, "/api/cart/increase", map[string]any{"productId": p1, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_RemoveAndClear(t *testing.T) {
	api := newTestAPI(t)
	p1 := api.createProduct("Mug")
	p2 := api.createProduct("Plate")
	api.login("owner@example.com")

	for _, p := range []string{p1, p2} {
		status, _ := api.do(http.MethodPost, "/api/cart/add", map[string]any{"productId": p, "quantity": 1})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := api.do(http.MethodDelete, "/api/cart/"+p2, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, p2, decode[map[string]string](t, body)["productId"])

	status, _ = api.do(http.MethodDelete, "/api/cart/"+p2, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	for range 2 {
		status, _ = api.do(http.MethodDelete, "/api/cart", nil)
		assert.Equal(t, http.StatusOK, status)
	}

	status, body = api.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestServer_CartValidation(t *testing.T) {
	api := newTestAPI(t)
	p1 := api.createProduct("Mug")
	api.login("owner@example.com")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"malformed json", "/api/cart/add", "{", http.StatusBadRequest},
		{"empty body", "/api/cart/add", nil, http.StatusBadRequest},
		{"missing product", "/api/cart/add", map[string]any{"quantity": 1}, http.StatusBadRequest},
		{"zero quantity", "/api/cart/add", map[string]any{"productId": p1, "quantity": 0}, http.StatusBadRequest},
		{"fractional quantity", "/api/cart/add", `{"productId":"` + p1 + `","quantity":1.5}`, http.StatusBadRequest},
		{"string quantity", "/api/cart/increase", `{"productId":"` + p1 + `","quantity":"2"}`, http.StatusBadRequest},
		{"negative decrease", "/api/cart/decrease", map[string]any{"productId": p1, "quantity": -1}, http.StatusBadRequest},
		{"quantity past column range", "/api/cart/add", map[string]any{"productId": p1, "quantity": 3000000000}, http.StatusBadRequest},
		{"unknown product", "/api/cart/add", map[string]any{"productId": uuid.NewString(), "quantity": 1}, http.StatusNotFound},
		{"decrease missing item", "/api/cart/decrease", map[string]any{"productId": p1, "quantity": 1}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}

	status, _ := api.do(http.MethodDelete, "/api/cart/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_CartsAreOwnerScoped(t *testing.T) {
	alice := newTestAPI(t)
	p1 := alice.createProduct("Mug")
	alice.login("alice@example.com")

	status, _ := alice.do(http.MethodPost, "/api/cart/add", map[string]any{"productId": p1, "quantity": 1})
	require.Equal(t, http.StatusOK, status)

	bob := &apiClient{t: t, server: alice.server}
	bob.login("bob@example.com")

	status, _ = bob.do(http.MethodDelete, "/api/cart/"+p1, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := bob.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))

	status, body = alice.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)
}

func TestServer_Users(t *testing.T) {
	api := newTestAPI(t)
	api.login("me@example.com")

	status, body := api.do(http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[map[string]any](t, body)
	assert.Equal(t, "me@example.com", me["email"])
	assert.NotContains(t, me, "passwordHash")

	status, body = api.do(http.MethodPost, "/api/users/register", map[string]string{"email": "me@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email already exists", decode[map[string]string](t, body)["message"])

	status, body = api.do(http.MethodPost, "/api/users/login", map[string]string{"email": "me@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid credentials", decode[map[string]string](t, body)["message"])

	status, body = api.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)
}

func TestServer_Products(t *testing.T) {
	api := newTestAPI(t)
	id := api.createProduct("Mug")

	status, body := api.do(http.MethodGet, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mug", decode[map[string]any](t, body)["name"])

	status, _ = api.do(http.MethodGet, "/api/products/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodPost, "/api/products", map[string]any{"name": "Free", "price": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)
}

func TestServer_OperationalEndpoints(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, _ = api.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "go_goroutines")
}
