package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/internal/metrics"
	"github.com/lborres/storefront/pkg/crypto"
	"github.com/lborres/storefront/pkg/validation"
	"github.com/lborres/storefront/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	app     *fiber.App
	db      *services.FakeStorage
	tokens  *services.TokenService
	hasher  *crypto.Bcrypt
	metrics *metrics.Recorder
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	signer, err := crypto.NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	hasher, err := crypto.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt() error = %v", err)
	}

	db := services.NewFakeStorage()
	v := validation.New()
	tokens := services.NewTokenService(signer, services.NewFakeAllowList(), 5*time.Minute, time.Hour)

	sf := &core.Storefront{
		Auth:           services.NewAuthService(db, hasher, tokens, v, nil),
		Users:          services.NewUserService(db, hasher, v),
		Catalog:        services.NewCatalogService(db, v),
		Orders:         services.NewOrderService(db, v),
		BasePath:       "/api",
		AccessTokenTTL: 5 * time.Minute,
		StoreTimeout:   time.Second,
	}

	rec := metrics.New()
	app := fiber.New()
	if err := New(app, append([]Option{WithMetrics(rec)}, opts...)...).RegisterRoutes(sf); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}

	return &testServer{app: app, db: db, tokens: tokens, hasher: hasher, metrics: rec}
}

// seedUser stores a user with the given roles and returns an access token for it.
func (s *testServer) seedUser(t *testing.T, name string, admin, seller bool) (*core.User, string) {
	t.Helper()

	hash, err := s.hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	u := &core.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: hash,
		IsAdmin:      admin,
		IsSeller:     seller,
	}
	s.db.SeedUser(u)

	token, err := s.tokens.IssueAccessToken(core.ClaimsFor(u))
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error = %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
	}
	return resp, out
}

// Requirement: A registered user can log in and reach a protected route with the issued token
func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	// Arrange
	s := newTestServer(t)

	// Act
	resp, registered := s.do(t, "POST", "/api/register", "", map[string]string{
		"name":     "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})

	// Assert
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, want %d (%v)", resp.StatusCode, http.StatusOK, registered)
	}
	if _, ok := registered["passwordHash"]; ok {
		t.Errorf("register response leaks the password hash")
	}
	if registered["isAdmin"] != false || registered["isSeller"] != false {
		t.Errorf("new account roles = %v/%v, want false/false", registered["isAdmin"], registered["isSeller"])
	}

	resp, login := s.do(t, "POST", "/api/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d (%v)", resp.StatusCode, http.StatusOK, login)
	}
	token, _ := login["token"].(string)
	if token == "" || login["refreshToken"] == "" {
		t.Fatalf("login response missing tokens: %v", login)
	}
	if login["message"] != "user login successful" {
		t.Errorf("message = %v, want %q", login["message"], "user login successful")
	}
	var cookieSet bool
	for _, c := range resp.Cookies() {
		if c.Name == tokenCookie && c.Value == token && c.HttpOnly {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Errorf("login did not set an HTTP-only %q cookie", tokenCookie)
	}

	id, _ := registered["_id"].(string)
	resp, profile := s.do(t, "POST", "/api/profile/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d, want %d (%v)", resp.StatusCode, http.StatusOK, profile)
	}
	if profile["email"] != "alice@example.com" {
		t.Errorf("profile email = %v, want alice@example.com", profile["email"])
	}
}

// Requirement: The refresh endpoint exchanges a refresh token for a working access token
func TestRefreshToken_IssuesAccessToken(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	s.do(t, "POST", "/api/register", "", map[string]string{"name": "bob", "email": "bob@example.com", "password": "password123"})
	_, login := s.do(t, "POST", "/api/login", "", map[string]string{"email": "bob@example.com", "password": "password123"})

	// Act
	resp, body := s.do(t, "POST", "/api/token", "", map[string]interface{}{"refreshToken": login["refreshToken"]})

	// Assert
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d, want %d (%v)", resp.StatusCode, http.StatusOK, body)
	}
	token, _ := body["token"].(string)
	resp, _ = s.do(t, "POST", "/api/product/missing/reviews", token, map[string]interface{}{"rating": 5})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("review with refreshed token status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	// An access token is not a refresh token.
	resp, _ = s.do(t, "POST", "/api/token", "", map[string]interface{}{"refreshToken": login["token"]})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh with access token status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// Requirement: Error taxonomy maps to the documented status codes
func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		useToken   bool
		header     string
		body       interface{}
		wantStatus int
	}{
		{
			name:       "missing token is 401",
			method:     "POST",
			path:       "/api/users",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token is 401",
			method:     "POST",
			path:       "/api/users",
			header:     "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non bearer scheme is 401",
			method:     "POST",
			path:       "/api/users",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing role is 403",
			method:     "POST",
			path:       "/api/users",
			useToken:   true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "invalid registration is 400",
			method:     "POST",
			path:       "/api/register",
			body:       map[string]string{"name": "x", "email": "nope", "password": "short"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong password is 401",
			method:     "POST",
			path:       "/api/login",
			body:       map[string]string{"email": "carol@example.com", "password": "wrong-password"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown email is 401",
			method:     "POST",
			path:       "/api/login",
			body:       map[string]string{"email": "nobody@example.com", "password": "password123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user is 404",
			method:     "GET",
			path:       "/api/u9999",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad price filter is 400",
			method:     "GET",
			path:       "/api/product/page?min=cheap",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty order is 400",
			method:     "POST",
			path:       "/api/order/create",
			useToken:   true,
			body:       map[string]interface{}{"orderItems": []interface{}{}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			s := newTestServer(t)
			_, token := s.seedUser(t, "carol", false, false)

			var raw io.Reader
			if test.body != nil {
				b, _ := json.Marshal(test.body)
				raw = bytes.NewReader(b)
			}
			req := httptest.NewRequest(test.method, test.path, raw)
			req.Header.Set("Content-Type", "application/json")
			switch {
			case test.useToken:
				req.Header.Set("Authorization", "Bearer "+token)
			case test.header != "":
				req.Header.Set("Authorization", test.header)
			}

			// Act
			resp, err := s.app.Test(req)

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
		})
	}
}

// Requirement: Product creation requires both the admin and seller roles
func TestCreateProduct_RoleGate(t *testing.T) {
	tests := []struct {
		name       string
		admin      bool
		seller     bool
		wantStatus int
	}{
		{name: "plain user", wantStatus: http.StatusForbidden},
		{name: "seller only", seller: true, wantStatus: http.StatusForbidden},
		{name: "admin only", admin: true, wantStatus: http.StatusForbidden},
		{name: "admin and seller", admin: true, seller: true, wantStatus: http.StatusOK},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			s := newTestServer(t)
			_, token := s.seedUser(t, "dave", test.admin, test.seller)

			// Act
			resp, body := s.do(t, "POST", "/api/product/create", token, map[string]interface{}{
				"name":         "Lamp",
				"category":     "home",
				"price":        19.5,
				"countInStock": 3,
			})

			// Assert
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, test.wantStatus, body)
			}
			if test.wantStatus == http.StatusOK && body["createdProduct"] == nil {
				t.Errorf("response missing createdProduct: %v", body)
			}
		})
	}
}

// Requirement: Role denials are counted per role
func TestRoleGate_RecordsDenial(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	_, token := s.seedUser(t, "erin", false, false)

	// Act
	s.do(t, "POST", "/api/users", token, nil)

	// Assert
	got := testutil.ToFloat64(s.metrics.RoleDenialsTotal.WithLabelValues(string(core.RoleAdmin)))
	if got != 1 {
		t.Errorf("role denials = %v, want 1", got)
	}
}

// Requirement: Pagination reports counts and neighbouring pages
func TestPageProducts_Pagination(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	seller, _ := s.seedUser(t, "frank", true, true)
	for i := 0; i < 5; i++ {
		err := s.db.CreateProduct(context.Background(), &core.Product{
			Name:     fmt.Sprintf("item-%d", i),
			Category: "tools",
			Price:    float64(10 * (i + 1)),
			SellerID: seller.ID,
		})
		if err != nil {
			t.Fatalf("CreateProduct() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLen    int
		wantPages  float64
		wantLimit  float64
	}{
		{name: "middle page", query: "page=2&limit=2&category=tools", wantStatus: http.StatusOK, wantLen: 2, wantPages: 3, wantLimit: 2},
		{name: "limit clamped to maximum", query: "page=2&limit=1000", wantStatus: http.StatusOK, wantLen: 0, wantPages: 1, wantLimit: 100},
		{name: "page below one starts at the first page", query: "page=0&limit=2", wantStatus: http.StatusOK, wantLen: 2, wantPages: 3, wantLimit: 2},
		{name: "negative page starts at the first page", query: "page=-4&limit=2", wantStatus: http.StatusOK, wantLen: 2, wantPages: 3, wantLimit: 2},
		{name: "page out of range", query: "page=92233720368547759&limit=100", wantStatus: http.StatusBadRequest},
		{name: "page not a number", query: "page=two", wantStatus: http.StatusBadRequest},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp, body := s.do(t, "GET", "/api/product/page?"+test.query, "", nil)

			// Assert
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, test.wantStatus, body)
			}
			if test.wantStatus != http.StatusOK {
				return
			}
			if body["productCount"] != float64(5) {
				t.Errorf("productCount = %v, want 5", body["productCount"])
			}
			if body["totalPages"] != test.wantPages {
				t.Errorf("totalPages = %v, want %v", body["totalPages"], test.wantPages)
			}
			data, _ := body["data"].([]interface{})
			if len(data) != test.wantLen {
				t.Errorf("page size = %d, want %d", len(data), test.wantLen)
			}
			pagination, _ := body["pagination"].(map[string]interface{})
			link, _ := pagination["next"].(map[string]interface{})
			if link == nil {
				link, _ = pagination["prev"].(map[string]interface{})
			}
			if link["limit"] != test.wantLimit {
				t.Errorf("pagination link limit = %v, want %v (%v)", link["limit"], test.wantLimit, pagination)
			}
		})
	}
}

type wishlistPlugin struct{}

func (wishlistPlugin) GetEndpoints() []core.Endpoint {
	return []core.Endpoint{{
		Method:   "GET",
		Path:     "/wishlist",
		Auth:     true,
		Roles:    []core.Role{core.RoleSeller},
		Metadata: core.EndpointMetadata{OperationID: "wishlist"},
	}}
}

// Requirement: a plugin endpoint is served by the handler bound to its operation id, behind its declared guards
func TestPluginEndpoint(t *testing.T) {
	// Arrange
	registry := services.NewEndpointRegistry()
	if err := registry.RegisterProvider(wishlistPlugin{}); err != nil {
		t.Fatalf("RegisterProvider() error = %v", err)
	}
	s := newTestServer(t, WithRegistry(registry), WithHandler("wishlist", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"owner": ClaimsFrom(c).Name})
	}))
	_, buyerToken := s.seedUser(t, "kate", false, false)
	_, sellerToken := s.seedUser(t, "liam", false, true)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "not a seller", token: buyerToken, wantStatus: http.StatusForbidden},
		{name: "seller", token: sellerToken, wantStatus: http.StatusOK},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp, body := s.do(t, "GET", "/api/wishlist", test.token, nil)

			// Assert
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, test.wantStatus, body)
			}
			if test.wantStatus == http.StatusOK && body["owner"] != "liam" {
				t.Errorf("owner = %v, want liam", body["owner"])
			}
		})
	}
}

// Requirement: routes fail to register when an operation has no handler or a plugin shadows a built-in one
func TestRegisterRoutes_PluginBindingErrors(t *testing.T) {
	tests := []struct {
		name string
		opts func() []Option
	}{
		{
			name: "unbound plugin operation",
			opts: func() []Option {
				registry := services.NewEndpointRegistry()
				_ = registry.RegisterPlugin([]core.Endpoint{{Method: "GET", Path: "/wishlist", Metadata: core.EndpointMetadata{OperationID: "wishlist"}}})
				return []Option{WithRegistry(registry)}
			},
		},
		{
			name: "handler shadows built-in operation",
			opts: func() []Option {
				return []Option{WithHandler(services.OpLogin, func(c fiber.Ctx) error { return nil })}
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			sf := &core.Storefront{BasePath: "/api"}

			// Act
			err := New(fiber.New(), test.opts()...).RegisterRoutes(sf)

			// Assert
			if err == nil {
				t.Error("RegisterRoutes() error = nil, want binding error")
			}
		})
	}
}

// Requirement: Orders can be placed and listed by their buyer
func TestOrders_CreateAndList(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	_, token := s.seedUser(t, "gina", false, false)

	// Act
	resp, created := s.do(t, "POST", "/api/order/create", token, map[string]interface{}{
		"orderItems": []map[string]interface{}{
			{"name": "Lamp", "qty": 1, "price": 19.5, "product": "p0001"},
		},
		"shippingAddress": map[string]string{"address": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US"},
		"paymentMethod":   "card",
		"totalPrice":      19.5,
	})

	// Assert
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d (%v)", resp.StatusCode, http.StatusCreated, created)
	}

	resp, listed := s.do(t, "POST", "/api/order/orders", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want %d (%v)", resp.StatusCode, http.StatusOK, listed)
	}
	orders, _ := listed["orders"].([]interface{})
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}
}

// Requirement: Storage failures answer 500 without leaking the cause
func TestStorageFailure_GenericBody(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	s.db.Fail("ListProducts", errors.New("connection refused"))

	// Act
	resp, body := s.do(t, "GET", "/api/product/products", "", nil)

	// Assert
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if body["error"] != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("error body = %v, want generic message", body["error"])
	}
}

// Requirement: mapErrorToStatus maps storefront errors to HTTP status codes
func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &core.ValidationError{}, want: http.StatusBadRequest},
		{name: "invalid id", err: core.ErrInvalidID, want: http.StatusBadRequest},
		{name: "invalid token", err: core.ErrInvalidToken, want: http.StatusUnauthorized},
		{name: "forbidden", err: core.ErrForbidden, want: http.StatusForbidden},
		{name: "order not found", err: core.ErrOrderNotFound, want: http.StatusNotFound},
		{name: "duplicate review", err: core.ErrReviewExists, want: http.StatusConflict},
		{name: "wrapped storage error", err: core.StorageError("find", errors.New("boom")), want: http.StatusInternalServerError},
		{name: "unknown error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			got := mapErrorToStatus(test.err)

			// Assert
			if got != test.want {
				t.Errorf("mapErrorToStatus(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

// Requirement: RequireAuth and RequireRole protect routes mounted outside the registry
func TestRequireAuthAndRole_CustomRoute(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	a := New(s.app)
	auth := services.NewAuthService(s.db, s.hasher, s.tokens, validation.New(), nil)
	s.app.Get("/sensitive", a.RequireAuth(auth), a.RequireRole(core.RoleAdmin), func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": ClaimsFrom(c).Name})
	})
	_, userToken := s.seedUser(t, "ivan", false, false)
	_, adminToken := s.seedUser(t, "judy", true, false)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "anonymous", wantStatus: http.StatusUnauthorized},
		{name: "plain user", token: userToken, wantStatus: http.StatusForbidden},
		{name: "admin", token: adminToken, wantStatus: http.StatusOK},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			resp, body := s.do(t, "GET", "/sensitive", test.token, nil)

			// Assert
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, test.wantStatus, body)
			}
			if test.wantStatus == http.StatusOK && body["name"] != "judy" {
				t.Errorf("name = %v, want judy", body["name"])
			}
		})
	}
}

// Requirement: The login cookie authenticates when no header is sent
func TestExtractToken_CookieFallback(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	user, token := s.seedUser(t, "kate", false, false)
	req := httptest.NewRequest("POST", "/api/profile/"+user.ID, nil)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})

	// Act
	resp, err := s.app.Test(req)

	// Assert
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
