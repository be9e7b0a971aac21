// Package printing implements portal.DocumentExporter: a static mock
// exporter, a headless Chrome invoice renderer and an archiving decorator.
package printing

// Error codes for export failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeTemplate      = "TEMPLATE_FAILED"
	ErrCodeStorageFailed = "STORAGE_FAILED"
)

// RenderError represents an error while producing a document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}
