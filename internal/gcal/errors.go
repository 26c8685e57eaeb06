package gcal

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ProviderError is a non-2xx calendar API response other than the handled
// 401 and delete 404 cases. Message carries the provider's own text.
type ProviderError struct {
	Status  int
	Message string
	Body    string
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("calendar provider error %d: %s", e.Status, msg)
}

// statusOf returns the HTTP status carried by a googleapi error, or 0.
func statusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// providerError converts a googleapi error into a *ProviderError. Other
// errors (transport, context) pass through wrapped with op.
func providerError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.Code, Message: apiErr.Message, Body: apiErr.Body}
	}
	return fmt.Errorf("%s: %w", op, err)
}
