package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleLocatario   UserRole = "LOCATARIO"
	RoleInstitucion UserRole = "INSTITUCION"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLocatario, RoleInstitucion:
		return true
	default:
		return false
	}
}

// CanReview reports whether the role may act on the acceptance of posts.
func (r UserRole) CanReview() bool {
	return r == RoleAdmin || r == RoleInstitucion
}

// Label returns the Spanish display name used by the mobile client.
func (r UserRole) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleInstitucion:
		return "Institución"
	case RoleLocatario:
		return "Locatario"
	default:
		return string(r)
	}
}

// User is a registered account together with its public profile fields.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Username     *string    `db:"username" json:"username,omitempty"`
	FullName     string     `db:"full_name" json:"full_name"`
	Address      *string    `db:"address" json:"address,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Condition    *string    `db:"condition" json:"condition,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
