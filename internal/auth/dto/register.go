package dto

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	UserType    string `json:"user_type"`
}

type RegisterOutput struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
