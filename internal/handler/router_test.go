package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront-api/internal/ai"
	"github.com/flicky/storefront-api/internal/checkout"
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

// --- in-memory repositories ---

type memStores struct{ stores []model.Store }

func (m *memStores) List(context.Context) ([]model.Store, error) { return m.stores, nil }

func (m *memStores) GetByID(_ context.Context, id uuid.UUID) (*model.Store, error) {
	for i := range m.stores {
		if m.stores[i].ID == id {
			s := m.stores[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memStores) Create(_ context.Context, s *model.Store) error {
	s.ID = uuid.New()
	m.stores = append(m.stores, *s)
	return nil
}

func (m *memStores) Delete(_ context.Context, id uuid.UUID) error {
	for i := range m.stores {
		if m.stores[i].ID == id {
			m.stores = append(m.stores[:i], m.stores[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memProducts map[uuid.UUID]*model.Product

func (m memProducts) Create(_ context.Context, p *model.Product) error {
	m[p.ID] = p
	return nil
}

func (m memProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) { return m[id], nil }

func (m memProducts) Delete(_ context.Context, storeID, id uuid.UUID) error {
	if p, ok := m[id]; ok && p.StoreID == storeID {
		delete(m, id)
		return nil
	}
	return pgx.ErrNoRows
}

type memCarts map[string]model.Cart

func (m memCarts) Get(_ context.Context, sid string) (*model.Cart, error) {
	c := m[sid]
	return &model.Cart{Items: c.Snapshot()}, nil
}

func (m memCarts) Save(_ context.Context, sid string, c *model.Cart) error {
	m[sid] = model.Cart{Items: c.Snapshot()}
	return nil
}

func (m memCarts) Clear(_ context.Context, sid string) error {
	delete(m, sid)
	return nil
}

type memCheckouts struct {
	seqs  map[string]checkout.Sequencer
	locks map[string]bool
}

func (m *memCheckouts) Get(_ context.Context, sid string) (*checkout.Sequencer, error) {
	s := m.seqs[sid]
	return &s, nil
}

func (m *memCheckouts) Save(_ context.Context, sid string, s *checkout.Sequencer) error {
	m.seqs[sid] = *s
	return nil
}

func (m *memCheckouts) Reset(_ context.Context, sid string) error {
	delete(m.seqs, sid)
	return nil
}

func (m *memCheckouts) Lock(_ context.Context, sid string) (string, bool, error) {
	if m.locks[sid] {
		return "", false, nil
	}
	m.locks[sid] = true
	return sid, true, nil
}

func (m *memCheckouts) Unlock(_ context.Context, sid, _ string) error {
	delete(m.locks, sid)
	return nil
}

type memOrders map[uuid.UUID]*model.Order

func (m memOrders) Create(_ context.Context, o *model.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	m[o.ID] = o
	return nil
}

func (m memOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) { return m[id], nil }

func (m memOrders) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type memProfiles map[uuid.UUID]*model.Profile

func (m memProfiles) Create(_ context.Context, p *model.Profile) error {
	p.ID = uuid.New()
	m[p.ID] = p
	return nil
}

func (m memProfiles) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) { return m[id], nil }

func (m memProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	for _, p := range m {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (m memProfiles) ListByRole(_ context.Context, role model.Role) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range m {
		if p.Role == role {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memDenylist map[string]bool

func (m memDenylist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	m[jti] = true
	return nil
}

func (m memDenylist) IsRevoked(_ context.Context, jti string) (bool, error) { return m[jti], nil }

// --- harness ---

const testSecret = "test-secret"

type testApp struct {
	router   *gin.Engine
	stores   *memStores
	products memProducts
	orders   memOrders
	profiles memProfiles
	auth     *service.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &testApp{
		stores:   &memStores{},
		products: memProducts{},
		orders:   memOrders{},
		profiles: memProfiles{},
	}
	carts := memCarts{}
	checkouts := &memCheckouts{seqs: map[string]checkout.Sequencer{}, locks: map[string]bool{}}
	denylist := memDenylist{}
	orders := service.NewOrderService(app.orders, nil)

	app.auth = service.NewAuthService(app.profiles, denylist, testSecret, time.Hour)
	catalog := service.NewCatalogService(app.stores, app.products, nil)
	admin := service.NewAdminService(catalog, app.stores, app.profiles, ai.NewDescriber(nil, log))

	app.router = NewRouter(RouterConfig{
		Log:           log,
		JWTSecret:     testSecret,
		Denylist:      denylist,
		SessionCookie: "sid",
		SessionTTL:    time.Hour,
		Auth:          NewAuthHandler(app.auth),
		Catalog:       NewCatalogHandler(catalog),
		Cart:          NewCartHandler(service.NewCartService(carts, app.products)),
		Checkout:      NewCheckoutHandler(service.NewCheckoutService(checkouts, carts, app.orders, orders, nil, log)),
		Orders:        NewOrderHandler(orders),
		Admin:         NewAdminHandler(admin),
	})
	return app
}

type client struct {
	t       *testing.T
	app     *testApp
	token   string
	session string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(middleware.SessionHeader, c.session)
	}
	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)
	if sid := w.Header().Get(middleware.SessionHeader); sid != "" {
		c.session = sid
	}
	return w
}

func (c *client) register(email string) dto.AuthResponse {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{Email: email, Password: "password123"})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.AuthResponse
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	c.token = resp.Token
	return resp
}

func (c *client) loginAs(role model.Role) *model.Profile {
	c.t.Helper()
	resp := c.register(uuid.NewString() + "@example.com")
	p := c.app.profiles[resp.Profile.ID]
	p.Role = role
	w := c.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: p.Email, Password: "password123"})
	require.Equal(c.t, http.StatusOK, w.Code)
	var login dto.AuthResponse
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &login))
	c.token = login.Token
	return p
}

func (a *testApp) seedStore(name string, managerID *uuid.UUID, prices ...int64) model.Store {
	s := model.Store{ID: uuid.New(), Name: name, ManagerID: managerID}
	for _, price := range prices {
		p := model.Product{ID: uuid.New(), StoreID: s.ID, Name: name + " item", Price: decimal.NewFromInt(price)}
		a.products[p.ID] = &p
		s.Products = append(s.Products, p)
	}
	a.stores.stores = append(a.stores.stores, s)
	return s
}

// --- tests ---

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	store := app.seedStore("Acme", nil, 100, 50)
	c := &client{t: t, app: app}
	c.register("shopper@example.com")

	p1, p2 := store.Products[0].ID, store.Products[1].ID
	for _, id := range []uuid.UUID{p1, p1, p2} {
		w := c.do(http.MethodPost, "/api/v1/cart/items", dto.AddCartItemRequest{ProductID: id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := c.do(http.MethodPost, "/api/v1/checkout/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPut, "/api/v1/checkout/address", gin.H{"full_name": "Ada"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPut, "/api/v1/checkout/address", model.Address{
		FullName: "Ada", Street: "1 Way", City: "London", State: "LDN", Zip: "N1", Country: "UK", Phone: "1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodPut, "/api/v1/checkout/payment", checkout.Payment{CardNumber: "4242424242424242", Expiry: "12/30", CVC: "123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state dto.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, checkout.StepReview, state.Step)
	assert.Equal(t, "4242", state.CardLast4)
	assert.True(t, state.Cart.Subtotal.Equal(decimal.NewFromInt(250)))

	w = c.do(http.MethodPost, "/api/v1/checkout/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order dto.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(250)))

	w = c.do(http.MethodGet, "/api/v1/cart", nil)
	var cart dto.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Empty(t, cart.Items)

	w = c.do(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	other := &client{t: t, app: app}
	other.register("other@example.com")
	w = other.do(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckoutRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, app: app}
	w := c.do(http.MethodGet, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartUnknownProduct(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, app: app}
	w := c.do(http.MethodPost, "/api/v1/cart/items", dto.AddCartItemRequest{ProductID: uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListStoresSearch(t *testing.T) {
	app := newTestApp(t)
	app.seedStore("Alpha Goods", nil)
	app.seedStore("Beta Mart", nil)
	c := &client{t: t, app: app}

	w := c.do(http.MethodGet, "/api/v1/stores?search=alpha", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.StoreListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Alpha Goods", list.Stores[0].Name)

	w = c.do(http.MethodGet, "/api/v1/stores/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminScoping(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, app: app}
	manager := c.loginAs(model.RoleManager)
	otherID := uuid.New()
	own := app.seedStore("Own", &manager.ID)
	foreign := app.seedStore("Foreign", &otherID)

	w := c.do(http.MethodGet, "/api/v1/admin/stores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.StoreListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, own.ID, list.Stores[0].ID)

	req := dto.CreateProductRequest{Name: "Mug", Description: "Holds coffee", Price: decimal.NewFromInt(5)}
	w = c.do(http.MethodPost, "/api/v1/admin/stores/"+foreign.ID.String()+"/products", req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodPost, "/api/v1/admin/stores/"+own.ID.String()+"/products", req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = c.do(http.MethodPost, "/api/v1/admin/stores", dto.CreateStoreRequest{Name: "X", Description: "Y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodPost, "/api/v1/admin/products/describe", dto.DescribeProductRequest{Name: "Lamp"})
	require.Equal(t, http.StatusOK, w.Code)
	var desc dto.DescribeProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	assert.Equal(t, ai.UnavailableMessage, desc.Description)
}

func TestAdminRejectsCustomers(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, app: app}
	c.register("shopper@example.com")

	w := c.do(http.MethodGet, "/api/v1/admin/stores", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, app: app}
	c.register("shopper@example.com")

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/auth/me", nil).Code)
	require.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/api/v1/auth/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/v1/auth/me", nil).Code)
}
