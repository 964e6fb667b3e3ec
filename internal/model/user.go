package model

import (
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// Roles a user may hold.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// DefaultPhoto is assigned when a user does not provide one.
const DefaultPhoto = "default.jpg"

// User mirrors the `users` table. Credential and reset fields never leave
// the process: they carry `json:"-"`.
type User struct {
	ID                   uint64     `json:"id"`
	Name                 string     `json:"name" validate:"required"`
	Email                string     `json:"email" validate:"required,email"`
	Photo                string     `json:"photo"`
	Role                 string     `json:"role" validate:"required,oneof=user guide lead-guide admin"`
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at iat. Comparison is at second granularity, like JWT iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

// Ref returns the public summary of u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Photo: u.Photo, Email: u.Email, Role: u.Role}
}

// UserRef is the expanded form of a user reference (review author, guide).
type UserRef struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUser checks profile fields of u after normalizing them.
func ValidateUser(u *User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	return validation.Struct(u)
}

// Credentials is a plaintext password with its confirmation.
type Credentials struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required"`
}

// ValidateCredentials checks the password rules and the confirmation match.
func ValidateCredentials(c Credentials) error {
	ve := validation.Collect(&c)
	if c.PasswordConfirm != "" && c.Password != c.PasswordConfirm {
		ve.Add("Passwords are not the same!")
	}
	return ve.OrNil()
}

// UserInput is the allow-listed body for creating a user. Role is only
// honoured on the admin route; public signup discards it.
type UserInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Photo           string `json:"photo"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// User builds the profile part of the input.
func (in UserInput) User() *User {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	return &User{Name: in.Name, Email: in.Email, Photo: in.Photo, Role: role, Active: true}
}

// Credentials returns the password part of the input.
func (in UserInput) Credentials() Credentials {
	return Credentials{Password: in.Password, PasswordConfirm: in.PasswordConfirm}
}

// UserPatch is the admin update body. Passwords are never patched here.
type UserPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Photo *string `json:"photo"`
	Role  *string `json:"role"`
}

// Apply copies every non-nil field of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Photo != nil {
		u.Photo = *p.Photo
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// SelfPatch keeps only the fields a user may change on their own profile.
func (p UserPatch) SelfPatch() UserPatch {
	return UserPatch{Name: p.Name, Email: p.Email, Photo: p.Photo}
}
