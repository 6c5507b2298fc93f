// Package models - user.go defines the User model for FamilyVault accounts with
// email, display name, OIDC subject, and the cached default team id written back
// by identity resolution.
package models

import (
	"strings"
	"time"
)

// User represents a principal in the system. The row is created or updated on
// every OIDC login; FamilyVault never stores passwords.
type User struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	OIDCSub *string `json:"-"` // subject identifier at the identity provider

	// DefaultTeamID is a write-through cache of the team resolved for this
	// user. Cleared when the membership is removed.
	DefaultTeamID *string `json:"default_team_id,omitempty"`

	// RefreshTokenEnc holds the AES-GCM encrypted OIDC refresh token, if the
	// provider issued one. Never serialized.
	RefreshTokenEnc *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the name to show for the user: the profile name when
// present, otherwise the local part of the email, otherwise "My". Used to name
// auto-provisioned teams.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return "My"
}
