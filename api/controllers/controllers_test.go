package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cloudcore-storefront/api/middleware"
	"github.com/angelmondragon/cloudcore-storefront/internal/cart"
	"github.com/angelmondragon/cloudcore-storefront/internal/catalog"
	"github.com/angelmondragon/cloudcore-storefront/internal/orders"
	"github.com/angelmondragon/cloudcore-storefront/internal/pricing"
	"github.com/angelmondragon/cloudcore-storefront/pkg/commerce"
	"github.com/angelmondragon/cloudcore-storefront/pkg/config"
	"github.com/angelmondragon/cloudcore-storefront/pkg/kv"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

type fakeCommerce struct {
	products []commerce.Product
	listErr  error
	orders   atomic.Int32
	orderErr error
}

func (f *fakeCommerce) ListProducts(context.Context) ([]commerce.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeCommerce) ImageURL(image string) string {
	return "https://assets.test/storage/product/" + image
}

func (f *fakeCommerce) CreateOrder(context.Context, commerce.OrderRequest) (*commerce.OrderResponse, error) {
	f.orders.Add(1)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	ok := true
	return &commerce.OrderResponse{HTTPStatus: http.StatusOK, Status: &ok, Decoded: true}, nil
}

type harness struct {
	upstream *fakeCommerce
	store    *kv.Memory
	catalog  *catalog.Service
	cart     CartDeps
	orders   orders.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logg := logger.Nop()
	upstream := &fakeCommerce{products: []commerce.Product{
		{ID: 1, Name: "Linen Shirt", Image: "shirt.jpg", Price: decimal.NewFromInt(500), Stock: 3, Category: commerce.Category{ID: 10, Name: "Shirts"}},
		{ID: 2, Name: "Scarf", Image: "scarf.jpg", Price: decimal.NewFromInt(80), Stock: 9, Category: commerce.Category{ID: 20, Name: "Accessories"}},
	}}
	store := kv.NewMemory()
	sessions, err := cart.NewSessions(store, logg, cart.Options{})
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(upstream, logg, nil)
	require.NoError(t, err)
	engine := pricing.NewEngine(pricing.DefaultTiers(), upstream)
	ordersSvc, err := orders.NewService(orders.Deps{
		Sessions: sessions,
		Catalog:  catalogSvc,
		Pricing:  engine,
		Gateway:  upstream,
		Logger:   logg,
	})
	require.NoError(t, err)

	return &harness{
		upstream: upstream,
		store:    store,
		catalog:  catalogSvc,
		cart:     CartDeps{Sessions: sessions, Catalog: catalogSvc, Pricing: engine, Logger: logg},
		orders:   ordersSvc,
	}
}

func sessionRequest(method, target, session string, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.WithCartSession(req.Context(), session)
	if params != nil {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data  map[string]any `json:"data"`
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	if envelope.Error != nil {
		return envelope.Error
	}
	return envelope.Data
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), ReadinessCheck{Name: "cart_store", Pinger: kv.NewMemory()})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get(envHeader))

	failing := pingFunc(func(context.Context) error { return errors.New("redis down") })
	rec = httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), ReadinessCheck{Name: "redis", Pinger: failing})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProductListAndFilter(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	products := data["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	assert.Equal(t, "https://assets.test/storage/product/shirt.jpg", first["image_url"])
	assert.Equal(t, false, data["loading"])

	rec = httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?category_id=20", nil))
	data = decodeData(t, rec)
	require.Len(t, data["products"].([]any), 1)

	rec = httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?category_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductListWithoutCatalog(t *testing.T) {
	h := newHarness(t)
	h.upstream.listErr = errors.New("upstream down")

	rec := httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProductDetailAndFeatured(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	ProductDetail(h.catalog, logger.Nop())(rec, sessionRequest(http.MethodGet, "/api/v1/products/2", "s", "", map[string]string{"productId": "2"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Scarf", decodeData(t, rec)["name"])

	rec = httptest.NewRecorder()
	ProductDetail(h.catalog, logger.Nop())(rec, sessionRequest(http.MethodGet, "/api/v1/products/99", "s", "", map[string]string{"productId": "99"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	ProductFeatured(h.catalog, 8, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/featured?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData(t, rec)["products"].([]any), 1)
}

func TestProductRefresh(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	ProductRefresh(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeData(t, rec)["products"])

	h.upstream.listErr = errors.New("boom")
	rec = httptest.NewRecorder()
	ProductRefresh(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/v1/products/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "boom", h.catalog.Snapshot().Error)
}

func TestCartLifecycle(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items?address=Dhaka", "v1", `{"product_id":1,"quantity":2}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Nil(t, data["warnings"])
	quote := data["quote"].(map[string]any)
	assert.Equal(t, "1000", quote["subtotal"])
	assert.Equal(t, "70", quote["delivery_charge"])
	assert.Equal(t, "1070", quote["total"])

	rec = httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":1,"quantity":2}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []any{"exceeds_stock"}, decodeData(t, rec)["warnings"])

	rec = httptest.NewRecorder()
	CartFetch(h.cart)(rec, sessionRequest(http.MethodGet, "/api/v1/cart?address=Chittagong", "v1", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Equal(t, "v1", data["session_id"])
	assert.Equal(t, float64(1), data["count"])
	items := data["items"].([]any)
	assert.Equal(t, float64(4), items[0].(map[string]any)["quantity"])
	assert.Equal(t, "150", data["quote"].(map[string]any)["delivery_charge"])

	rec = httptest.NewRecorder()
	CartRemoveItem(h.cart)(rec, sessionRequest(http.MethodDelete, "/api/v1/cart/items/1", "v1", "", map[string]string{"productId": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeData(t, rec)["count"])

	rec = httptest.NewRecorder()
	CartQuote(h.cart)(rec, sessionRequest(http.MethodGet, "/api/v1/cart/quote", "v1", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", decodeData(t, rec)["subtotal"])
}

func TestCartAddItemValidation(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":1,"quantity":0}`, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":404,"quantity":1}`, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.store.Len())
}

func TestCartClearDeletesSnapshot(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":2,"quantity":1}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, h.store.Len())

	rec = httptest.NewRecorder()
	CartClear(h.cart)(rec, sessionRequest(http.MethodDelete, "/api/v1/cart", "v1", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.store.Len())
}

func TestCheckout(t *testing.T) {
	h := newHarness(t)
	form := `{"name":"Rahim","phone":"01700000000","address":"Gulshan, Dhaka","courier":"Pathao"}`

	rec := httptest.NewRecorder()
	Checkout(h.orders, logger.Nop())(rec, sessionRequest(http.MethodPost, "/api/v1/checkout", "v1", form, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_CART", decodeData(t, rec)["code"])
	assert.Equal(t, int32(0), h.upstream.orders.Load())

	rec = httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":1,"quantity":2}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	Checkout(h.orders, logger.Nop())(rec, sessionRequest(http.MethodPost, "/api/v1/checkout", "v1", form, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Len(t, data["reference"], 6)
	assert.Equal(t, "1070", data["total"])
	assert.Equal(t, true, data["cart_cleared"])
	assert.Equal(t, 0, h.store.Len())
}

func TestCheckoutTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.upstream.orderErr = errors.New("connection reset")

	rec := httptest.NewRecorder()
	CartAddItem(h.cart)(rec, sessionRequest(http.MethodPost, "/api/v1/cart/items", "v1", `{"product_id":2,"quantity":1}`, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	Checkout(h.orders, logger.Nop())(rec, sessionRequest(http.MethodPost, "/api/v1/checkout", "v1",
		`{"name":"Rahim","phone":"01700000000","address":"Sylhet","courier":"Pathao"}`, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Something went wrong. Please try again.", decodeData(t, rec)["message"])
	assert.Equal(t, 1, h.store.Len())
}

func TestProductListPagination(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Len(t, data["products"].([]any), 1)
	next, _ := data["next_cursor"].(string)
	require.NotEmpty(t, next)

	rec = httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=1&cursor="+next, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	products := data["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "Scarf", products[0].(map[string]any)["name"])
	_, more := data["next_cursor"]
	assert.False(t, more)

	rec = httptest.NewRecorder()
	ProductList(h.catalog, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?cursor=garbage!", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
