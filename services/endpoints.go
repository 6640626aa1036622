package services

import (
	"fmt"

	"github.com/lborres/storefront/core"
)

// Operation IDs bind endpoint templates to adapter handlers.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpRefreshToken   = "refreshToken"
	OpLogout         = "logout"
	OpListUsers      = "listUsers"
	OpGetProfile     = "getProfile"
	OpUpdateUser     = "updateUser"
	OpDeleteUser     = "deleteUser"
	OpGetUser        = "getUser"
	OpCreateProduct  = "createProduct"
	OpListProducts   = "listProducts"
	OpPageProducts   = "pageProducts"
	OpCategories     = "listCategories"
	OpSellerProducts = "sellerProducts"
	OpUpdateProduct  = "updateProduct"
	OpClearReviews   = "clearReviews"
	OpDeleteProduct  = "deleteProduct"
	OpAddReview      = "addReview"
	OpGetProduct     = "getProduct"
	OpCreateOrder    = "createOrder"
	OpListOrders     = "listOrders"
	OpSalesSummary   = "salesSummary"
	OpDeleteOrder    = "deleteOrder"
)

func endpoint(method, path, op, desc string, auth bool, roles ...core.Role) core.Endpoint {
	return core.Endpoint{
		Path:   path,
		Method: method,
		Auth:   auth,
		Roles:  roles,
		Metadata: core.EndpointMetadata{
			OperationID: op,
			Description: desc,
		},
	}
}

// BaseEndpoints returns framework-agnostic endpoint definitions for the
// whole storefront API, relative to the base path.
//
// Order matters: literal paths are listed before the parameterised paths
// they would otherwise be shadowed by.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		// Users
		endpoint("POST", "/register", OpRegister, "Create an account with name, email and password", false),
		endpoint("POST", "/login", OpLogin, "Exchange email and password for an access and refresh token", false),
		endpoint("POST", "/token", OpRefreshToken, "Exchange a refresh token for a new access token", false),
		endpoint("GET", "/logout", OpLogout, "Clear the token cookie", false),
		endpoint("POST", "/users", OpListUsers, "List every account", true, core.RoleAdmin),
		endpoint("POST", "/profile/:id", OpGetProfile, "Fetch a profile by id", true),
		endpoint("PUT", "/update/:id", OpUpdateUser, "Partially update an account", true),
		endpoint("DELETE", "/delete/:id", OpDeleteUser, "Delete an account", true, core.RoleAdmin),

		// Products
		endpoint("POST", "/product/create", OpCreateProduct, "List a new product", true, core.RoleAdmin, core.RoleSeller),
		endpoint("GET", "/product/products", OpListProducts, "List all products", false),
		endpoint("GET", "/product/page", OpPageProducts, "Paginated, filtered product listing", false),
		endpoint("GET", "/product/categories", OpCategories, "Distinct product categories", false),
		endpoint("POST", "/product/seller", OpSellerProducts, "Products of a seller, newest first", true, core.RoleSeller),
		endpoint("PUT", "/product/update/:id", OpUpdateProduct, "Partially update a product", true, core.RoleSeller),
		endpoint("DELETE", "/product/delete/reviews/:id", OpClearReviews, "Remove every review of a product", true, core.RoleAdmin),
		endpoint("DELETE", "/product/delete/:id", OpDeleteProduct, "Delete a product", true, core.RoleSeller),
		endpoint("POST", "/product/:id/reviews", OpAddReview, "Review a product", true),
		endpoint("POST", "/product/:id", OpGetProduct, "Fetch a product by id", true, core.RoleSeller),

		// Orders
		endpoint("POST", "/order/create", OpCreateOrder, "Place an order", true),
		endpoint("POST", "/order/orders", OpListOrders, "Orders of a user", true),
		endpoint("POST", "/order/summary", OpSalesSummary, "Sales summary", true, core.RoleAdmin),
		endpoint("DELETE", "/order/delete/:id", OpDeleteOrder, "Delete an order", true, core.RoleAdmin),

		// Catch-all user lookup goes last
		endpoint("GET", "/:id", OpGetUser, "Fetch an account by id", false),
	}
}

// EndpointRegistry manages an ordered collection of framework-agnostic
// endpoints and rejects duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
	order     []string
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	for _, ep := range BaseEndpoints() {
		ep := ep
		if err := reg.register(&ep); err != nil {
			panic(err)
		}
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint to the registry with conflict detection.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional endpoints after the base set.
// If any endpoint conflicts with an existing one or with another in the same
// batch, nothing is registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for i := range endpoints {
		key := endpointKey(&endpoints[i])

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		_ = r.register(&ep)
	}

	return nil
}

// RegisterProvider registers the endpoints a plugin provides.
func (r *EndpointRegistry) RegisterProvider(p core.EndpointProvider) error {
	return r.RegisterPlugin(p.GetEndpoints())
}

// Endpoints returns every registered endpoint in registration order.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.endpoints[key])
	}
	return result
}

// Lookup returns the endpoint registered for method and path.
func (r *EndpointRegistry) Lookup(method, path string) (*core.Endpoint, bool) {
	ep, ok := r.endpoints[method+":"+path]
	return ep, ok
}
