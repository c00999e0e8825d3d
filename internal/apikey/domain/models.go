package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrAPIKeyNotFound  = errors.New("api_key_not_found")
	ErrInvalidKeyName  = errors.New("invalid_key_name")
	ErrInvalidRole     = errors.New("invalid_key_role")
	ErrInvalidIdentity = errors.New("invalid_key_identity")
	ErrAlreadyDisabled = errors.New("api_key_already_disabled")
)

// Role decides which surface a key reaches. Admin keys pass the policy
// enforcer on /v1/admin routes; payer and merchant keys act as the account
// named by Identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePayer    Role = "payer"
	RoleMerchant Role = "merchant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePayer, RoleMerchant:
		return true
	}
	return false
}

const MaxKeyNameLen = 64

// APIKey stores only the sha256 of the issued secret. The raw key is shown
// once at issue time and never persisted.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null;size:64" json:"name"`
	KeyHash    string       `gorm:"not null;uniqueIndex;size:64" json:"-"`
	Role       Role         `gorm:"not null" json:"role"`
	Identity   string       `gorm:"not null" json:"identity"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewRawKey returns a fresh secret in the shape "pp_<48 hex chars>".
func NewRawKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "pp_" + hex.EncodeToString(buf), nil
}
