package dto

import "time"

// AuthenticationResult is the ephemeral outcome of login, refresh and
// external-login flows. It is returned to the transport layer and never
// persisted.
type AuthenticationResult struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message,omitempty"`
	AccessToken  string      `json:"token,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	Expiration   *time.Time  `json:"expiration,omitempty"`
	User         *UserOutput `json:"user,omitempty"`
}

func Rejected(message string) *AuthenticationResult {
	return &AuthenticationResult{Success: false, Message: message}
}
