// Package models - team.go defines the Team model representing the tenant that
// owns every resource in FamilyVault.
package models

import "time"

// Team represents a family/organization grouping. Every resource row carries a
// team id and all queries are scoped by it.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Plan string `json:"plan"`

	// OnboardingStep persists the wizard position so a family can resume
	// setup where they left off.
	OnboardingStep int `json:"onboarding_step"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
