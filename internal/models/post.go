package models

import "time"

// AcceptanceStatus is the review state of a post.
type AcceptanceStatus string

const (
	AcceptanceNotReviewed         AcceptanceStatus = "not_reviewed"
	AcceptanceAccepted            AcceptanceStatus = "accepted"
	AcceptanceAcceptedInstitution AcceptanceStatus = "accepted_institution"
)

// Valid reports whether s is a known acceptance state.
func (s AcceptanceStatus) Valid() bool {
	switch s {
	case AcceptanceNotReviewed, AcceptanceAccepted, AcceptanceAcceptedInstitution:
		return true
	default:
		return false
	}
}

// IsAccepted reports whether s is either accepted variant.
func (s AcceptanceStatus) IsAccepted() bool {
	return s == AcceptanceAccepted || s == AcceptanceAcceptedInstitution
}

// Post is a donation offer or request published by a user.
type Post struct {
	ID             string           `db:"id" json:"id"`
	Title          string           `db:"title" json:"title"`
	Content        string           `db:"content" json:"content"`
	UserID         string           `db:"user_id" json:"user_id"`
	Status         AcceptanceStatus `db:"status" json:"status"`
	QuantityDetail *string          `db:"quantity_detail" json:"quantity_detail,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// PostWithAuthor joins a post with the author's public profile.
type PostWithAuthor struct {
	Post
	AuthorName    string   `db:"author_name" json:"author_name"`
	AuthorRole    UserRole `db:"author_role" json:"author_role"`
	AuthorAddress *string  `db:"author_address" json:"author_address,omitempty"`
	AuthorAvatar  *string  `db:"author_avatar" json:"author_avatar,omitempty"`
}

// PostFilter constrains post listing queries.
type PostFilter struct {
	ExcludeUserID string
	UserID        string
	Statuses      []AcceptanceStatus
	Limit         int
	Offset        int
}

// PickupLocation is an accepted post whose products still await pickup.
type PickupLocation struct {
	PostID       string  `db:"post_id" json:"post_id"`
	Title        string  `db:"title" json:"title"`
	Content      string  `db:"content" json:"content"`
	UserID       string  `db:"user_id" json:"user_id"`
	AuthorName   string  `db:"author_name" json:"author_name"`
	Address      *string `db:"address" json:"address,omitempty"`
	PendingLines int     `db:"pending_lines" json:"pending_lines"`
}
