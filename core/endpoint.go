package core

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint is a framework-agnostic route description. Adapters bind the
// OperationID to a concrete handler and apply the guards in order: the auth
// check first, then each role gate left to right.
type Endpoint struct {
	Path     string
	Method   string
	Auth     bool
	Roles    []Role
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error      string           `json:"error"`
	Violations []FieldViolation `json:"violations,omitempty"`
}
