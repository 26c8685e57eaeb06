package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRefreshToken indicates the stored credential cannot be refreshed.
	ErrMissingRefreshToken = errors.New("credential has no refresh token")

	// ErrUnauthorized indicates the provider rejected the access token even
	// after a refresh.
	ErrUnauthorized = errors.New("provider rejected access token")

	// ErrNotConnected indicates no credential is stored for the user.
	ErrNotConnected = errors.New("calendar account not connected")
)

// AuthError is a terminal authorization failure. The user has to go through
// consent again; callers must not retry.
type AuthError struct {
	UserID string
	Err    error
}

func (e *AuthError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("auth: %v", e.Err)
	}
	return fmt.Sprintf("auth for user %s: %v", e.UserID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err carries an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
