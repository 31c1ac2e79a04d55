package shared

// DomainError is an error carrying a stable machine-readable code that the
// HTTP layer maps onto a status and response body.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is chains
func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a domain error with the given code
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapDomainError attaches a cause to a new domain error
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, cause: cause}
}

// Errors shared across bounded contexts. Context-specific conditions such
// as payment state transitions define their own sentinels next to their
// aggregates.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConfiguration       = NewDomainError("CONFIGURATION_ERROR", "Integration is not configured")
	ErrRemoteUnavailable   = NewDomainError("REMOTE_UNAVAILABLE", "Remote service is unavailable")
)
