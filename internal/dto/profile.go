package dto

import "github.com/xralks/Bancodealimentos/internal/models"

// UpdateProfileRequest edits the caller's public profile. Nil fields are left as is.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,max=60"`
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	Condition *string `json:"condition" validate:"omitempty,max=255"`
}

// ProfileResponse is a user's public profile.
type ProfileResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email,omitempty"`
	Username  *string         `json:"username,omitempty"`
	FullName  string          `json:"full_name"`
	Address   *string         `json:"address,omitempty"`
	Role      models.UserRole `json:"role"`
	RoleLabel string          `json:"role_label"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Condition *string         `json:"condition,omitempty"`
	PostCount int             `json:"post_count"`
}

// AvatarUpload is a decoded avatar image ready for storage.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}
