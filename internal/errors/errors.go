package errors

import (
	"errors"
)

// Sentinel errors shared by the auth services and stores. Handlers map them
// onto HTTP status codes; refresh and reset failures are collapsed into
// generic responses before they reach a caller.
var (
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")

	ErrUserNotFound = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenReused   = errors.New("refresh token reused")

	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

	// ErrResetTokenConflict is returned by stores when the conditional
	// consume of a reset token affects no rows: a concurrent redemption won,
	// or the token expired after it was read.
	ErrResetTokenConflict = errors.New("reset token already consumed or expired")
)

// IsRefreshFailure reports whether err is one of the refresh rotation
// failures. All of them surface to the caller as the same unauthorized result.
func IsRefreshFailure(err error) bool {
	return errors.Is(err, ErrRefreshTokenNotFound) ||
		errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrRefreshTokenReused)
}
