// Package models defines the entity shapes persisted by the local store and
// exchanged with the remote store during sync.
package models

import (
	"encoding/json"
	"strings"
)

// SyncStatus is the lifecycle state of a row in a per-collection table.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
	StatusDeleted SyncStatus = "deleted"
)

// OpType is the kind of intent recorded in the sync queue.
type OpType string

const (
	OpAdd    OpType = "add"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Collection is the canonical name of a syncable table. Using a distinct
// type (rather than bare strings) keeps queue/guard/store call sites from
// silently accepting a typo'd collection name.
type Collection string

const (
	CollectionFoodLog      Collection = "food_log_entries"
	CollectionPerishables  Collection = "perishable_items"
	CollectionWeight       Collection = "weight_entries"
	CollectionSettings     Collection = "user_settings"
	CollectionFastingPlans Collection = "fasting_plans"
	CollectionFastingSess  Collection = "fasting_sessions"
	CollectionReactionLogs Collection = "reaction_logs"
	CollectionFavorites    Collection = "favorite_foods"
)

// AllCollections returns every syncable collection, used for full-pull and
// deleteAllUserData sweeps.
func AllCollections() []Collection {
	return []Collection{
		CollectionFoodLog,
		CollectionPerishables,
		CollectionWeight,
		CollectionSettings,
		CollectionFastingPlans,
		CollectionFastingSess,
		CollectionReactionLogs,
		CollectionFavorites,
	}
}

// NormalizeCollection maps singular/plural aliases to the canonical
// collection name, mirroring the teacher's entity-type normalization.
func NormalizeCollection(s string) (Collection, bool) {
	switch strings.ToLower(s) {
	case "food_log_entry", "food_log_entries", "foodlog":
		return CollectionFoodLog, true
	case "perishable_item", "perishable_items", "perishable":
		return CollectionPerishables, true
	case "weight_entry", "weight_entries", "weight":
		return CollectionWeight, true
	case "user_settings", "settings":
		return CollectionSettings, true
	case "fasting_plan", "fasting_plans":
		return CollectionFastingPlans, true
	case "fasting_session", "fasting_sessions":
		return CollectionFastingSess, true
	case "reaction_log", "reaction_logs":
		return CollectionReactionLogs, true
	case "favorite_food", "favorite_foods", "favorites":
		return CollectionFavorites, true
	default:
		return "", false
	}
}

// FoodLogEntry is a single logged food item.
type FoodLogEntry struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	FoodName     string     `json:"foodName"`
	ServingSize  float64    `json:"servingSize"`
	ServingUnit  string     `json:"servingUnit"`
	Calories     float64    `json:"calories"`
	ProteinG     float64    `json:"proteinG"`
	CarbsG       float64    `json:"carbsG"`
	FatG         float64    `json:"fatG"`
	MicrosJSON   string     `json:"microsJson,omitempty"`
	MealType     string     `json:"mealType"`
	ConsumedDate string     `json:"consumedDate"` // YYYY-MM-DD
	LoggedAt     int64      `json:"loggedAt"`      // seconds since epoch
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastModified int64      `json:"lastModified"`
}

// PerishableItem is an item tracked for expiry in a user's inventory.
type PerishableItem struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	ExpiryDate   string     `json:"expiryDate"`
	AddedDate    string     `json:"addedDate"`
	MetadataJSON string     `json:"metadataJson,omitempty"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastModified int64      `json:"lastModified"`
}

// WeightEntry is a single body-weight measurement.
type WeightEntry struct {
	ID           string     `json:"id"` // UUID
	UserID       string     `json:"userId"`
	Weight       float64    `json:"weight"`
	Date         string     `json:"date"`
	BMI          *float64   `json:"bmi,omitempty"`
	Waist        *float64   `json:"waist,omitempty"`
	DressSize    string     `json:"dressSize,omitempty"`
	PhotosJSON   string     `json:"photosJson,omitempty"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastModified int64      `json:"lastModified"`
}

// UserSettings is the singleton settings row, keyed by SettingsID.
const SettingsID = "current"

type UserSettings struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	CalorieGoal   float64    `json:"calorieGoal"`
	ProteinPct    float64    `json:"proteinPct"`
	CarbsPct      float64    `json:"carbsPct"`
	FatPct        float64    `json:"fatPct"`
	AllergensJSON string     `json:"allergensJson,omitempty"`
	SyncStatus    SyncStatus `json:"syncStatus"`
	LastModified  int64      `json:"lastModified"`
}

// OpaqueRecord is the shared shape of collections that store an opaque,
// client-defined payload plus a small amount of indexed metadata
// (fasting plans/sessions, reaction logs, favorite foods).
type OpaqueRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	IndexedKey   string     `json:"indexedKey,omitempty"` // plan name / food name, etc.
	Timestamp    int64      `json:"timestamp,omitempty"`  // started_at / occurred_at, etc.
	Payload      []byte     `json:"payload"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastModified int64      `json:"lastModified"`
}

// Document converts any entity into the generic map representation used by
// RemoteStore, so the sync engine never needs per-entity remote codecs.
func Document(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
