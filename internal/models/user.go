package models

import "time"

// User is a local account. Accounts are never hard-deleted; IsActive is the
// switch.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Login        string    `bson:"login" json:"login"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	IsActive     bool      `bson:"isActive" json:"is_active"`
	IsVerified   bool      `bson:"isVerified" json:"is_verified"`
	IsAdmin      bool      `bson:"isAdmin" json:"is_admin"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}

// Role is a named permission group seeded from configuration.
type Role struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description" json:"description"`
}

// UserRole is the many-to-many link between users and roles.
type UserRole struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"userId" json:"user_id"`
	RoleID string `bson:"roleId" json:"role_id"`
}

// RoleNames returns the names of roles in order.
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
