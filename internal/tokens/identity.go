package tokens

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
)

// Identity is the claim set embedded as the subject of every token.
type Identity struct {
	ID         string   `json:"id"`
	DeviceInfo string   `json:"device_info"`
	IsActive   bool     `json:"is_active"`
	IsVerified bool     `json:"is_verified"`
	IsAdmin    bool     `json:"is_admin"`
	IsPremium  bool     `json:"is_premium"`
	Roles      []string `json:"roles"`
}

// NewIdentity builds the claim set for a user. premiumRole names the role that
// grants premium access; it may be empty.
func NewIdentity(u *models.User, roles []string, deviceInfo, premiumRole string) Identity {
	if roles == nil {
		roles = []string{}
	}
	premium := false
	for _, r := range roles {
		if premiumRole != "" && r == premiumRole {
			premium = true
		}
	}
	return Identity{
		ID:         u.ID,
		DeviceInfo: deviceInfo,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
		IsPremium:  premium,
		Roles:      roles,
	}
}

// HasRole reports whether the identity carries the role.
func (i Identity) HasRole(name string) bool {
	for _, r := range i.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// identitySchema mirrors Identity with pointers so that absent fields can be
// told apart from zero values.
type identitySchema struct {
	ID         *string  `json:"id" validate:"required,min=1"`
	DeviceInfo *string  `json:"device_info" validate:"required"`
	IsActive   *bool    `json:"is_active" validate:"required"`
	IsVerified *bool    `json:"is_verified" validate:"required"`
	IsAdmin    *bool    `json:"is_admin" validate:"required"`
	IsPremium  *bool    `json:"is_premium"`
	Roles      []string `json:"roles" validate:"required,dive,min=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseIdentity decodes and validates a subject claim against the
// required-fields schema.
func ParseIdentity(raw json.RawMessage) (Identity, error) {
	var s identitySchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return Identity{}, err
	}
	if err := validate.Struct(s); err != nil {
		return Identity{}, err
	}
	id := Identity{
		ID:         *s.ID,
		DeviceInfo: *s.DeviceInfo,
		IsActive:   *s.IsActive,
		IsVerified: *s.IsVerified,
		IsAdmin:    *s.IsAdmin,
		Roles:      s.Roles,
	}
	if s.IsPremium != nil {
		id.IsPremium = *s.IsPremium
	}
	return id, nil
}
