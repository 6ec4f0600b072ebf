package models

import (
	"strings"

	"gorm.io/gorm"
)

// Roles an account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account in the store. Every user has at least one way to
// authenticate: a bcrypt password hash, a linked Google identity, or both.
// PasswordHash is empty for provider-only accounts, which makes the password
// login path fail closed for them.
type User struct {
	gorm.Model
	Name         string  `gorm:"size:255;not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string  `gorm:"size:255" json:"-"`
	GoogleID     *string `gorm:"uniqueIndex;size:255" json:"-"`
	Role         string  `gorm:"size:50;not null;default:user" json:"role"`
	Avatar       string  `gorm:"size:512" json:"avatar,omitempty"`
	Phone        string  `gorm:"size:50" json:"phone,omitempty"`

	AddressStreet  string `gorm:"size:255" json:"address_street,omitempty"`
	AddressCity    string `gorm:"size:100" json:"address_city,omitempty"`
	AddressState   string `gorm:"size:100" json:"address_state,omitempty"`
	AddressZipCode string `gorm:"size:20" json:"address_zip_code,omitempty"`
	AddressCountry string `gorm:"size:100" json:"address_country,omitempty"`
}

// IsAdmin reports whether the user currently holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// NormalizeEmail lower-cases and trims an email address. All lookups and
// writes go through this so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
