package dto

type ForgotPasswordInput struct {
	Email    string `json:"email"`
	ResetURL string `json:"-"`
}

type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
