// Package models - subscription.go defines the Subscription model for recurring
// family expenses (streaming, insurance, memberships).
package models

import "time"

// Billing cycles accepted by the API.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleWeekly  = "weekly"
)

// Subscription represents a recurring expense with an optional next renewal
// date, which drives the reminder job.
type Subscription struct {
	ID           string     `db:"id" json:"id"`
	TeamID       string     `db:"team_id" json:"team_id"`
	Name         string     `db:"name" json:"name"`
	AmountCents  int64      `db:"amount_cents" json:"amount_cents"`
	Currency     string     `db:"currency" json:"currency"`
	BillingCycle string     `db:"billing_cycle" json:"billing_cycle"`
	RenewsAt     *time.Time `db:"renews_at" json:"renews_at,omitempty"`
	Notes        string     `db:"notes" json:"notes"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
