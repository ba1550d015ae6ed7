package crossref

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the CrossRef client.
var (
	// ErrNotFound indicates the registry has no record for the DOI.
	ErrNotFound = errors.New("DOI not found in CrossRef")

	// ErrRateLimited indicates the registry rejected the request for rate limiting.
	ErrRateLimited = errors.New("CrossRef rate limit exceeded")

	// ErrNetworkError indicates a transport failure (DNS, connection, timeout).
	ErrNetworkError = errors.New("network error communicating with CrossRef")

	// ErrInvalidResponse indicates a response body that is not valid JSON.
	ErrInvalidResponse = errors.New("invalid response from CrossRef")
)

// APIError represents an unexpected HTTP status from the registry.
type APIError struct {
	StatusCode int
	Status     string
	DOI        string
}

func (e *APIError) Error() string {
	if e.DOI != "" {
		return fmt.Sprintf("CrossRef API error (status %d): %s (doi: %s)", e.StatusCode, e.Status, e.DOI)
	}
	return fmt.Sprintf("CrossRef API error (status %d): %s", e.StatusCode, e.Status)
}

// IsNotFound returns true if the error indicates a missing DOI.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// checkHTTPErrors returns an error for any non-2xx response.
func checkHTTPErrors(resp *http.Response, doi string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, doi)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			DOI:        doi,
		}
	}
	return nil
}
