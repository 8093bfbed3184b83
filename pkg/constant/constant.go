package constant

// User types supported by the platform.
const (
	UserTypeFamily    = "family"
	UserTypeCaregiver = "caregiver"
	UserTypeAdmin     = "admin"
)

// Default role names assigned at registration.
const (
	RoleFamily    = "Family"
	RoleCaregiver = "Caregiver"
	RoleAdmin     = "Admin"
)

// Revocation reasons recorded on refresh tokens.
const (
	RevokeReasonRotated       = "replaced by new token"
	RevokeReasonLoggedOut     = "logged out"
	RevokeReasonReuseDetected = "ancestor token reused"
)

// User-facing messages. Login and refresh failures deliberately share generic
// wording so responses do not reveal which check failed.
const (
	MsgInvalidCredentials  = "Invalid email or password"
	MsgAccountDeactivated  = "Account is deactivated"
	MsgInvalidRefreshToken = "Invalid token"
	MsgLoggedOut           = "Logged out successfully"
	MsgForgotPassword      = "If the email exists, a password reset link has been sent"
	MsgPasswordReset       = "Password has been reset successfully"
	MsgPasswordResetFailed = "Failed to reset password"
)

// RefreshTokenCookie is the cookie the transport layer uses to carry the
// refresh token between requests.
const RefreshTokenCookie = "refreshToken"
