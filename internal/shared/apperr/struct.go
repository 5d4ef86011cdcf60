package apperr

type Kind string

type AppError struct {
	Kind      Kind
	PublicMsg string            // customer-safe message
	Fields    map[string]string // per-field validation errors (optional)
	Err       error             // internal error (for logs)
}
