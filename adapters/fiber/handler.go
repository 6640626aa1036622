package fiber

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/internal/metrics"
	"github.com/lborres/storefront/services"
)

type handlers struct {
	sf      *core.Storefront
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func (h *handlers) bindings() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		services.OpRegister:       h.register,
		services.OpLogin:          h.login,
		services.OpRefreshToken:   h.refreshToken,
		services.OpLogout:         h.logout,
		services.OpGetUser:        h.getUser,
		services.OpGetProfile:     h.getUser,
		services.OpListUsers:      h.listUsers,
		services.OpUpdateUser:     h.updateUser,
		services.OpDeleteUser:     h.deleteUser,
		services.OpCreateProduct:  h.createProduct,
		services.OpListProducts:   h.listProducts,
		services.OpPageProducts:   h.pageProducts,
		services.OpCategories:     h.categories,
		services.OpSellerProducts: h.sellerProducts,
		services.OpUpdateProduct:  h.updateProduct,
		services.OpClearReviews:   h.clearReviews,
		services.OpDeleteProduct:  h.deleteProduct,
		services.OpAddReview:      h.addReview,
		services.OpGetProduct:     h.getProduct,
		services.OpCreateOrder:    h.createOrder,
		services.OpListOrders:     h.listOrders,
		services.OpSalesSummary:   h.salesSummary,
		services.OpDeleteOrder:    h.deleteOrder,
	}
}

// storeCtx bounds the store calls of one request.
func (h *handlers) storeCtx(c fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.sf.StoreTimeout > 0 {
		return context.WithTimeout(c.Context(), h.sf.StoreTimeout)
	}
	return context.WithCancel(c.Context())
}

func (h *handlers) bind(c fiber.Ctx, out interface{}) error {
	if err := c.Bind().Body(out); err != nil {
		return core.ErrInvalidRequestBody
	}
	return nil
}

func (h *handlers) fail(c fiber.Ctx, err error) error {
	return writeError(c, h.logger, err)
}

// ============================================
// Users
// ============================================

func (h *handlers) register(c fiber.Ctx) error {
	var input core.RegisterInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	user, err := h.sf.Auth.Register(ctx, input)
	h.metrics.AuthEvent("register", err)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(user)
}

func (h *handlers) login(c fiber.Ctx) error {
	var input core.LoginInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	result, err := h.sf.Auth.Login(ctx, input)
	h.metrics.AuthEvent("login", err)
	if err != nil {
		return h.fail(c, err)
	}

	ttl := h.sf.AccessTokenTTL
	if ttl <= 0 {
		ttl = services.DefaultAccessTokenTTL
	}
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    result.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":      "user login successful",
		"user":         result.User,
		"token":        result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

func (h *handlers) refreshToken(c fiber.Ctx) error {
	var input core.RefreshInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	token, err := h.sf.Auth.Refresh(ctx, input.RefreshToken)
	h.metrics.AuthEvent("refresh", err)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"token": token})
}

// logout only clears the cookie. Issued tokens stay valid until they expire.
func (h *handlers) logout(c fiber.Ctx) error {
	c.ClearCookie(tokenCookie)
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (h *handlers) getUser(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	user, err := h.sf.Users.GetUser(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(user)
}

func (h *handlers) listUsers(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	users, err := h.sf.Users.ListUsers(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(users)
}

func (h *handlers) updateUser(c fiber.Ctx) error {
	var input core.ProfileUpdateInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	user, err := h.sf.Users.UpdateUser(ctx, ClaimsFrom(c), c.Params("id"), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "user updated", "user": user})
}

func (h *handlers) deleteUser(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.sf.Users.DeleteUser(ctx, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "user deleted"})
}

// ============================================
// Products
// ============================================

func (h *handlers) createProduct(c fiber.Ctx) error {
	var input core.ProductInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	product, err := h.sf.Catalog.CreateProduct(ctx, ClaimsFrom(c), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "product created", "createdProduct": product})
}

func (h *handlers) listProducts(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	products, err := h.sf.Catalog.ListProducts(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(products)
}

func (h *handlers) pageProducts(c fiber.Ctx) error {
	q, err := parsePageQuery(c)
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	page, err := h.sf.Catalog.Page(ctx, q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(page)
}

func parsePageQuery(c fiber.Ctx) (core.PageQuery, error) {
	var q core.PageQuery
	var violations []core.FieldViolation

	intParam := func(name string) int {
		raw := c.Query(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			violations = append(violations, core.FieldViolation{Field: name, Rule: "number", Message: name + " must be an integer"})
		}
		return n
	}
	floatParam := func(name string) *float64 {
		raw := c.Query(name)
		if raw == "" {
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			violations = append(violations, core.FieldViolation{Field: name, Rule: "number", Message: name + " must be a number"})
			return nil
		}
		return &f
	}

	q.Page = intParam("page")
	q.Limit = intParam("limit")
	q.Filter = core.ProductFilter{
		Category: c.Query("category"),
		MinPrice: floatParam("min"),
		MaxPrice: floatParam("max"),
	}

	if len(violations) > 0 {
		return q, &core.ValidationError{Violations: violations}
	}
	return q, nil
}

func (h *handlers) categories(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	categories, err := h.sf.Catalog.Categories(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(categories)
}

func (h *handlers) sellerProducts(c fiber.Ctx) error {
	var input struct {
		SellerID string `json:"sellerId"`
	}
	if len(c.Body()) > 0 {
		if err := h.bind(c, &input); err != nil {
			return h.fail(c, err)
		}
	}
	if input.SellerID == "" {
		input.SellerID = ClaimsFrom(c).UserID
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	products, err := h.sf.Catalog.SellerProducts(ctx, input.SellerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "seller products", "sellerProduct": products})
}

func (h *handlers) getProduct(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	product, err := h.sf.Catalog.GetProduct(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(product)
}

func (h *handlers) updateProduct(c fiber.Ctx) error {
	var input core.ProductUpdateInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	product, err := h.sf.Catalog.UpdateProduct(ctx, ClaimsFrom(c), c.Params("id"), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "product updated", "product": product})
}

func (h *handlers) deleteProduct(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.sf.Catalog.DeleteProduct(ctx, ClaimsFrom(c), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "product deleted"})
}

func (h *handlers) addReview(c fiber.Ctx) error {
	var input core.ReviewInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	product, err := h.sf.Catalog.AddReview(ctx, ClaimsFrom(c), c.Params("id"), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "review added", "product": product})
}

func (h *handlers) clearReviews(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.sf.Catalog.ClearReviews(ctx, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "reviews deleted"})
}

// ============================================
// Orders
// ============================================

func (h *handlers) createOrder(c fiber.Ctx) error {
	var input core.OrderInput
	if err := h.bind(c, &input); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	order, err := h.sf.Orders.CreateOrder(ctx, ClaimsFrom(c), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "order created", "createdOrder": order})
}

func (h *handlers) listOrders(c fiber.Ctx) error {
	var input struct {
		UserID string `json:"userId"`
	}
	if len(c.Body()) > 0 {
		if err := h.bind(c, &input); err != nil {
			return h.fail(c, err)
		}
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	orders, err := h.sf.Orders.ListOrders(ctx, ClaimsFrom(c), input.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "user orders", "orders": orders})
}

func (h *handlers) salesSummary(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	summary, err := h.sf.Orders.Summary(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(summary)
}

func (h *handlers) deleteOrder(c fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.sf.Orders.DeleteOrder(ctx, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "order deleted"})
}

// ============================================
// Errors
// ============================================

func (a *Adapter) respondError(c fiber.Ctx, err error) error {
	return writeError(c, a.logger, err)
}

// writeError maps err to a status and JSON body. Internal failures are
// logged and answered with a generic message.
func writeError(c fiber.Ctx, logger *zap.Logger, err error) error {
	status := mapErrorToStatus(err)
	body := core.ErrorResponse{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Error = core.ErrValidation.Error()
		body.Violations = ve.Violations
	}

	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				zap.String("requestId", requestid.FromContext(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		body = core.ErrorResponse{Error: http.StatusText(status)}
	}

	return c.Status(status).JSON(body)
}

// mapErrorToStatus maps storefront error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidRequestBody),
		errors.Is(err, core.ErrInvalidID):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrProductNotFound),
		errors.Is(err, core.ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrReviewExists):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
