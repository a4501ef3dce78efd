package wan

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; provider-facing failures
// arrive wrapped in a *ProviderError that keeps the raw provider body.
var (
	// ErrValidation is returned for bad or missing input. It never reaches the network.
	ErrValidation = errors.New("wan: invalid request")
	// ErrConfiguration is returned when the DashScope API key is not configured.
	ErrConfiguration = errors.New("wan: DASHSCOPE_API_KEY is not configured")
	// ErrSubmission is returned when the provider rejects task creation.
	ErrSubmission = errors.New("wan: task submission rejected")
	// ErrContract is returned when a successful response cannot be used.
	ErrContract = errors.New("wan: unusable provider response")
	// ErrTransient is returned when a status check fails at the transport level.
	ErrTransient = errors.New("wan: status check failed")
)

// ProviderError carries the raw provider diagnostics for a failed call.
type ProviderError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Body)
	}
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
