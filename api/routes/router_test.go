package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/items"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/purchases"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeRedis struct {
	data   map[string]string
	counts map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeRedis) Ping(context.Context) error {
	return nil
}

type stubItemService struct {
	updateCalls int
	deleteCalls int
}

func (*stubItemService) Create(ctx context.Context, actor items.Actor, input items.CreateItemInput) (*items.ItemDTO, error) {
	return &items.ItemDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (*stubItemService) Get(ctx context.Context, id uuid.UUID) (*items.ItemDTO, error) {
	return &items.ItemDTO{ID: id}, nil
}

func (*stubItemService) List(ctx context.Context, query items.ListQuery) (*types.PageResult[items.ItemDTO], error) {
	return &types.PageResult[items.ItemDTO]{Items: []items.ItemDTO{}, Limit: query.Limit, Offset: query.Offset}, nil
}

func (s *stubItemService) Update(ctx context.Context, actor items.Actor, id uuid.UUID, input items.UpdateItemInput) (*items.ItemDTO, error) {
	s.updateCalls++
	return &items.ItemDTO{ID: id}, nil
}

func (s *stubItemService) Delete(ctx context.Context, actor items.Actor, id uuid.UUID) error {
	s.deleteCalls++
	return nil
}

func (*stubItemService) AdjustStock(ctx context.Context, actor items.Actor, id uuid.UUID, delta int) (*items.ItemDTO, error) {
	return &items.ItemDTO{ID: id}, nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New(), Items: []cart.CartLineDTO{}}, nil
}

func (stubCartService) AddItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New()}, nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New()}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New()}, nil
}

type stubCheckoutService struct {
	directCalls int
}

func (s *stubCheckoutService) Commit(ctx context.Context, userID uuid.UUID, input checkout.CommitInput) (*checkout.Receipt, error) {
	return &checkout.Receipt{PaymentRef: input.PaymentRef}, nil
}

func (s *stubCheckoutService) Direct(ctx context.Context, userID uuid.UUID, shipping types.ShippingAddress) (*checkout.Receipt, error) {
	s.directCalls++
	return &checkout.Receipt{PaymentRef: "cod_" + uuid.NewString(), Method: "cod", Total: decimal.NewFromInt(10)}, nil
}

type stubPaymentService struct{}

func (stubPaymentService) CreateOrder(ctx context.Context, userID uuid.UUID) (*payments.OrderHandle, error) {
	return &payments.OrderHandle{OrderID: "order_1", Amount: 1000, Currency: "INR"}, nil
}

func (stubPaymentService) Verify(ctx context.Context, userID uuid.UUID, input payments.VerifyInput) (*checkout.Receipt, error) {
	return &checkout.Receipt{PaymentRef: input.PaymentID}, nil
}

func (stubPaymentService) PublicKey() string { return "rzp_test_key" }

type stubPurchaseService struct{}

func (stubPurchaseService) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*purchases.HistoryPage, error) {
	return &purchases.HistoryPage{Purchases: []purchases.PurchaseDTO{}}, nil
}

func (stubPurchaseService) Get(ctx context.Context, userID, purchaseID uuid.UUID) (*purchases.PurchaseDTO, error) {
	return &purchases.PurchaseDTO{ID: purchaseID}, nil
}

type harness struct {
	handler  http.Handler
	cfg      *config.Config
	checkout *stubCheckoutService
	items    *stubItemService
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 30, CookieName: "jwt"},
		RateLimit: config.RateLimitConfig{
			PaymentsLimit:  2,
			PaymentsWindow: time.Minute,
		},
	}
	reg := prometheus.NewRegistry()
	checkoutSvc := &stubCheckoutService{}
	itemSvc := &stubItemService{}
	handler := NewRouter(
		cfg,
		logger.Nop(),
		stubPinger{},
		newFakeRedis(),
		reg,
		metrics.NewHTTPMetrics(reg),
		itemSvc,
		stubCartService{},
		checkoutSvc,
		stubPaymentService{},
		stubPurchaseService{},
	)
	return harness{handler: handler, cfg: cfg, checkout: checkoutSvc, items: itemSvc}
}

func (h harness) token(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (h harness) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		if resp := h.do(httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestCatalogIsPublic(t *testing.T) {
	h := newHarness(t)
	resp := h.do(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateRoutesRequireAuth(t *testing.T) {
	h := newHarness(t)
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/checkout"},
		{http.MethodPost, "/api/v1/payments/create-order"},
		{http.MethodPost, "/api/v1/payments/verify-payment"},
		{http.MethodGet, "/api/v1/purchases"},
		{http.MethodPost, "/api/v1/items"},
	}
	for _, p := range paths {
		resp := h.do(httptest.NewRequest(p.method, p.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", p.method, p.path, resp.Code)
		}
	}
}

func TestCookieAuthenticatesCart(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: h.token(t, enums.UserRoleBuyer)})
	if resp := h.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestBuyerCannotCreateItems(t *testing.T) {
	h := newHarness(t)
	body := `{"name":"Lamp","price":"10","available_count":1,"category":"Home"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+h.token(t, enums.UserRoleBuyer))
	if resp := h.do(req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+h.token(t, enums.UserRoleSeller))
	if resp := h.do(req); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestItemEditRoutes(t *testing.T) {
	h := newHarness(t)
	path := "/api/v1/items/" + uuid.NewString()
	body := `{"name":"Lamp"}`

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+h.token(t, enums.UserRoleBuyer))
	if resp := h.do(req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}

	seller := h.token(t, enums.UserRoleSeller)
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+seller)
		req.Header.Set("Idempotency-Key", "edit-1")
		if resp := h.do(req); resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d: %s", i+1, resp.Code, resp.Body.String())
		}
	}
	if h.items.updateCalls != 1 {
		t.Fatalf("expected replayed update, service called %d times", h.items.updateCalls)
	}

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("Authorization", "Bearer "+seller)
	if resp := h.do(req); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if h.items.deleteCalls != 1 {
		t.Fatalf("expected one delete, got %d", h.items.deleteCalls)
	}
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, enums.UserRoleBuyer)
	body := `{"shipping_address":{"full_name":"A B","phone":"1","line1":"x","city":"c","state":"s","postal_code":"1"}}`

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := h.do(req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i+1, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}
	if h.checkout.directCalls != 1 {
		t.Fatalf("expected one checkout, got %d", h.checkout.directCalls)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("expected replayed body, got %q vs %q", bodies[0], bodies[1])
	}
}

func TestPaymentRoutesAreRateLimited(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, enums.UserRoleBuyer)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create-order", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		codes = append(codes, h.do(req).Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/key", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := h.do(req); resp.Code != http.StatusOK {
		t.Fatalf("key endpoint is not rate limited, got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	resp := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `route="/api/v1/items"`) {
		t.Fatalf("expected request metric for items route:\n%s", resp.Body.String())
	}
}
