package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lborres/storefront/core"
	"github.com/lborres/storefront/internal/metrics"
	"github.com/lborres/storefront/services"
)

type Adapter struct {
	app      *fiber.App
	registry *services.EndpointRegistry
	plugins  map[string]fiber.Handler
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithMetrics records auth outcomes, role denials and handler latency.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithRegistry replaces the default endpoint registry, e.g. one carrying
// plugin endpoints.
func WithRegistry(r *services.EndpointRegistry) Option {
	return func(a *Adapter) {
		a.registry = r
	}
}

// WithHandler binds a plugin operation id to its handler. The endpoint
// itself, with its auth and role gates, comes from the registry.
// Use ClaimsFrom inside the handler to read the caller.
func WithHandler(operationID string, h fiber.Handler) Option {
	return func(a *Adapter) {
		if a.plugins == nil {
			a.plugins = make(map[string]fiber.Handler)
		}
		a.plugins[operationID] = h
	}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{app: app}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = services.NewEndpointRegistry()
	}
	return a
}

// RegisterRoutes mounts every registry endpoint under the base path, guarded
// by the auth check and role gates it declares.
func (a *Adapter) RegisterRoutes(sf *core.Storefront) error {
	a.logger = sf.Logger
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	h := &handlers{sf: sf, logger: a.logger, metrics: a.metrics}
	bindings := h.bindings()
	for op, handler := range a.plugins {
		if _, taken := bindings[op]; taken {
			return fmt.Errorf("plugin handler for %q shadows a built-in operation", op)
		}
		bindings[op] = handler
	}

	api := a.app.Group(sf.BasePath)
	for _, ep := range a.registry.Endpoints() {
		handler, ok := bindings[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler bound for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}

		guards := make([]guard, 0, len(ep.Roles)+1)
		if ep.Auth {
			guards = append(guards, a.authenticate(sf.Auth))
		}
		for _, role := range ep.Roles {
			guards = append(guards, a.authorize(role))
		}

		api.Add([]string{ep.Method}, ep.Path, a.guarded(ep.Metadata.OperationID, guards, handler))
	}

	return nil
}
