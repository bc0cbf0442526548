// Package model defines domain entities used by services and the storage layer.
package model

import "time"

// DateLayout is the on-disk date format. ISO dates sort lexicographically in
// chronological order, which the inventory sweep relies on.
const DateLayout = "2006-01-02"

// FallbackCategory is assigned to self-healed and orphaned items.
const FallbackCategory = "General"

// Item is a single tracked perishable, stored in exactly one of the fresh or
// expired collections.
type Item struct {
	ID         int64  `json:"id"`                    // microsecond-derived, unique per collection
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`           // ISO YYYY-MM-DD
	Category   string `json:"category,omitempty"`    // empty means missing; self-healed on read
	Owner      string `json:"owner"`                 // username, immutable after creation
	AddedAt    string `json:"added_at"`              // ISO date of creation
	ArchivedAt string `json:"archived_at,omitempty"` // ISO date the item moved to expired
}

// CategoryType discriminates the immutable system seed set from user entries.
type CategoryType string

const (
	CategoryTypeSystem CategoryType = "system"
	CategoryTypeCustom CategoryType = "custom"
)

// SystemOwner is the sentinel owner of system categories.
const SystemOwner = "system"

// Category groups items. System categories are seeded at bootstrap with ids of
// the form "sys_<index>"; custom ids are decimal microsecond timestamps.
type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"` // unique per scope, case-insensitive
	Type  CategoryType `json:"type"`
	Owner string       `json:"owner"`
}

// User is an account record, keyed by username in the users document.
type User struct {
	PasswordHash string `json:"password_hash"`
	Type         string `json:"type"`
	CreatedAt    string `json:"created_at"`
}

// Inventory is the per-user view returned by the lifecycle sweep. Both slices
// preserve storage order.
type Inventory struct {
	Fresh   []Item `json:"fresh"`
	Expired []Item `json:"expired"`
}

// Tokens collects an issued session token and its expiry (for diagnostics and
// cookie lifetime).
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}
