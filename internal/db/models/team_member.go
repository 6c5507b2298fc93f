// Package models - team_member.go defines models for user-to-team membership,
// including the enriched view joining user details for member listings.
package models

import "time"

// Membership roles. Admins manage members and invites; members read and write
// resources.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// TeamMember represents a user's membership in a team
type TeamMember struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMemberWithUser includes user details for display
type TeamMemberWithUser struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
}

// Invite represents a pending invitation to join a team. The raw token is only
// ever shown once; the row stores its bcrypt hash.
type Invite struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
