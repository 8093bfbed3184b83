package dto

type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

type ExternalLoginInput struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IPAddress   string `json:"-"`
}
