package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors for provider operations.
var (
	// ErrNotFound indicates the zone or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous indicates more than one zone or record matched a lookup
	// that must be unique.
	ErrAmbiguous = errors.New("ambiguous result")

	// ErrUnauthorized indicates the provider rejected the credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredential indicates the credential could not be parsed.
	ErrInvalidCredential = errors.New("invalid credential")
)

// APIMessage is one code/message pair reported by a provider API.
type APIMessage struct {
	Code    string
	Message string
}

// APIError is returned when the provider API rejects a request.
type APIError struct {
	Provider string
	Status   int
	Messages []APIMessage
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s API error: HTTP %d", e.Provider, e.Status)
	for _, m := range e.Messages {
		fmt.Fprintf(&b, "; error %s: %s", m.Code, m.Message)
	}
	return b.String()
}

// Unwrap maps authentication failures onto ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Status == 401 || e.Status == 403 {
		return ErrUnauthorized
	}
	return nil
}

// MatchError builds the error for a lookup that had to return exactly one
// result but returned count.
func MatchError(kind, name string, count int) error {
	if count == 0 {
		return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return fmt.Errorf("%s %q matched %d results: %w", kind, name, count, ErrAmbiguous)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// IsNotFound returns true if the error indicates a zone or record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAmbiguous returns true if the error indicates a lookup matched more than once.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsUnauthorized returns true if the error indicates authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsFatal reports whether err means the configured target can never be
// updated and the process should stop.
func IsFatal(err error) bool {
	return IsNotFound(err) || IsAmbiguous(err)
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
