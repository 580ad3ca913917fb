package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform, derived from the role flags.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAmbassador Role = "ambassador"
	RoleCreator    Role = "creator"

	// RoleDeleted marks a token issued to a soft-deleted account. It only
	// grants access to the account status and restore endpoints.
	RoleDeleted Role = "deleted"
)

// SocialHandles are the optional creator profiles.
type SocialHandles struct {
	Instagram string `json:"instagram,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

// User represents a platform user.
type User struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	Password     string        `json:"password_hash"`
	DisplayName  string        `json:"display_name"`
	Institution  string        `json:"institution"`
	Socials      SocialHandles `json:"socials"`
	PushToken    *string       `json:"push_token,omitempty"`
	IsAdmin      bool          `json:"is_admin"`
	IsAmbassador bool          `json:"is_ambassador"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Role returns the effective role. Admin wins over ambassador.
func (u *User) Role() Role {
	switch {
	case u.IsAdmin:
		return RoleAdmin
	case u.IsAmbassador:
		return RoleAmbassador
	}
	return RoleCreator
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"display_name"`
	Institution  string        `json:"institution"`
	Socials      SocialHandles `json:"socials"`
	HasPushToken bool          `json:"has_push_token"`
	Role         Role          `json:"role"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Institution:  u.Institution,
		Socials:      u.Socials,
		HasPushToken: u.PushToken != nil && *u.PushToken != "",
		Role:         u.Role(),
		CreatedAt:    u.CreatedAt,
	}
}

// DeletedUser is the holding copy of a soft-deleted account.
type DeletedUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Payload   User      `json:"payload"`
	DeletedAt time.Time `json:"deleted_at"`
}
