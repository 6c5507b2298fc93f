// Package models - asset.go defines the Asset model for tracked family assets.
package models

import "time"

// Asset types are free-form but the UI offers a fixed set.
const (
	AssetTypeProperty   = "property"
	AssetTypeVehicle    = "vehicle"
	AssetTypeInvestment = "investment"
	AssetTypeValuable   = "valuable"
	AssetTypeOther      = "other"
)

// Asset represents a tracked family asset with an estimated value.
// A non-nil DeletedAt means the asset is archived: excluded from listings but
// still addressable by id.
type Asset struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Name       string     `json:"name"`
	AssetType  string     `json:"asset_type"`
	ValueCents int64      `json:"value_cents"`
	Currency   string     `json:"currency"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
