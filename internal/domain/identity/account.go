// Package identity models the users who sign in to the CRM.
package identity

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/shared"
)

// Password cost for bcrypt
const bcryptCost = 12

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity errors
var (
	ErrInvalidCredentials = shared.NewDomainError("UNAUTHORIZED", "Invalid email or password")
	ErrEmailTaken         = shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	ErrInvalidRole        = shared.NewDomainError("INVALID_INPUT", "Role must be admin or user")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Account is a user document seen through the sign-in lens
type Account struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
}

// AccountFromDocument reads an account from a users document
func AccountFromDocument(doc document.Document) *Account {
	return &Account{
		ID:           doc.ID,
		Name:         doc.String("name"),
		Email:        NormalizeEmail(doc.String("email")),
		Role:         doc.StringOr("role", RoleUser),
		PasswordHash: doc.String("password_hash"),
		Avatar:       doc.String("avatarUrl"),
		CreatedAt:    doc.CreatedAt,
	}
}

// NewAccount validates input and hashes the password
func NewAccount(name, email, password, role string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Name cannot be empty")
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	role, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return &Account{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}, nil
}

// ParseRole validates a role name. Empty means RoleUser.
func ParseRole(role string) (string, error) {
	switch role = strings.ToLower(strings.TrimSpace(role)); role {
	case "":
		return RoleUser, nil
	case RoleAdmin, RoleUser:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}

// Fields returns the stored representation
func (a *Account) Fields() document.Fields {
	fields := document.Fields{
		"name":          a.Name,
		"email":         a.Email,
		"role":          a.Role,
		"password_hash": a.PasswordHash,
	}
	if a.Avatar != "" {
		fields["avatarUrl"] = a.Avatar
	}
	return fields
}

// VerifyPassword verifies if the provided password matches
func (a *Account) VerifyPassword(password string) bool {
	if a.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	return err == nil
}

// IsAdmin reports whether the account has the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AvatarURL returns the stored avatar or a generated initials image
func (a *Account) AvatarURL() string {
	if a.Avatar != "" {
		return a.Avatar
	}
	return crm.AvatarURL(a.Name)
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
