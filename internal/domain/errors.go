package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProvider marks any failure raised by a geocoding backend.
	ErrProvider = errors.New("geocoding provider error")
	// ErrStore marks a failure reading from or preparing the tabular store.
	ErrStore = errors.New("store error")
	// ErrStoreWrite marks a failed batch write to the tabular store.
	ErrStoreWrite = errors.New("store write error")
	// ErrConfiguration marks missing or invalid settings.
	ErrConfiguration = errors.New("configuration error")
)

// ProviderError describes a failed call to a geocoding backend.
// StatusCode is zero when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProvider) match every ProviderError.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Temporary reports whether a retry might succeed: transport failures,
// rate limiting and server-side errors.
func (e *ProviderError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsTemporary reports whether err wraps a temporary ProviderError.
func IsTemporary(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return false
}
