package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrEmptyPasswordHash = errors.New("password hash cannot be empty")
	ErrEmptyFirstName    = errors.New("first name cannot be empty")
	ErrEmptyLastName     = errors.New("last name cannot be empty")
	ErrEmptyRoleName     = errors.New("role name cannot be empty")
	ErrEmptyProvider     = errors.New("provider cannot be empty")
	ErrEmptyProviderKey  = errors.New("provider key cannot be empty")
)

// User is the account aggregate. Fields are mutated only through the methods
// below so every transition keeps the entity consistent; repositories scan
// into the exported fields but business code never assigns to them directly.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	PhoneNumber   string
	UserType      string
	EmailVerified bool
	PhoneVerified bool
	IsActive      bool
	CreatedAt     time.Time
	LastLoginAt   *time.Time

	Roles          []UserRole
	ExternalLogins []ExternalLogin
}

type UserRole struct {
	ID        string
	UserID    string
	RoleName  string
	CreatedAt time.Time
}

type ExternalLogin struct {
	ID          string
	UserID      string
	Provider    string
	ProviderKey string
	CreatedAt   time.Time
	LastUsedAt  *time.Time
}

// NewUser builds an active, unverified user. The email is lowercased so the
// store-level uniqueness constraint is case-insensitive in practice.
func NewUser(email, passwordHash, firstName, lastName, phoneNumber, userType string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, ErrEmptyPasswordHash
	}
	if strings.TrimSpace(firstName) == "" {
		return nil, ErrEmptyFirstName
	}
	if strings.TrimSpace(lastName) == "" {
		return nil, ErrEmptyLastName
	}

	return &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		PhoneNumber:  phoneNumber,
		UserType:     userType,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (u *User) VerifyEmail() {
	u.EmailVerified = true
}

func (u *User) VerifyPhone() {
	u.PhoneVerified = true
}

func (u *User) UpdatePassword(newPasswordHash string) error {
	if strings.TrimSpace(newPasswordHash) == "" {
		return ErrEmptyPasswordHash
	}

	u.PasswordHash = newPasswordHash

	return nil
}

func (u *User) UpdateProfile(firstName, lastName, phoneNumber string) error {
	if strings.TrimSpace(firstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(lastName) == "" {
		return ErrEmptyLastName
	}

	u.FirstName = firstName
	u.LastName = lastName
	u.PhoneNumber = phoneNumber

	return nil
}

func (u *User) RecordLogin() {
	now := time.Now().UTC()
	u.LastLoginAt = &now
}

func (u *User) Deactivate() {
	u.IsActive = false
}

func (u *User) Activate() {
	u.IsActive = true
}

// AddRole is a no-op when the user already holds the role.
func (u *User) AddRole(roleName string) error {
	if strings.TrimSpace(roleName) == "" {
		return ErrEmptyRoleName
	}

	if u.HasRole(roleName) {
		return nil
	}

	u.Roles = append(u.Roles, UserRole{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		RoleName:  roleName,
		CreatedAt: time.Now().UTC(),
	})

	return nil
}

func (u *User) RemoveRole(roleName string) {
	for i, r := range u.Roles {
		if r.RoleName == roleName {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return
		}
	}
}

func (u *User) HasRole(roleName string) bool {
	for _, r := range u.Roles {
		if r.RoleName == roleName {
			return true
		}
	}

	return false
}

// RoleNames returns the role claim set carried in access tokens.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.RoleName)
	}

	return names
}

func (u *User) AddExternalLogin(provider, providerKey string) error {
	if strings.TrimSpace(provider) == "" {
		return ErrEmptyProvider
	}
	if strings.TrimSpace(providerKey) == "" {
		return ErrEmptyProviderKey
	}

	for _, el := range u.ExternalLogins {
		if el.Provider == provider && el.ProviderKey == providerKey {
			return nil
		}
	}

	u.ExternalLogins = append(u.ExternalLogins, ExternalLogin{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		Provider:    provider,
		ProviderKey: providerKey,
		CreatedAt:   time.Now().UTC(),
	})

	return nil
}

func (u *User) RemoveExternalLogin(provider, providerKey string) {
	for i, el := range u.ExternalLogins {
		if el.Provider == provider && el.ProviderKey == providerKey {
			u.ExternalLogins = append(u.ExternalLogins[:i], u.ExternalLogins[i+1:]...)
			return
		}
	}
}
