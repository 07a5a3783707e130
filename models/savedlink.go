package models

import "time"

// EntityKind names the kind of catalog entity a link or chat message points at
type EntityKind string

// EntityKind values
const (
	KindVehicle EntityKind = "vehicle"
	KindPart    EntityKind = "part"
)

// Valid reports whether k is one of the known kinds
func (k EntityKind) Valid() bool {
	return k == KindVehicle || k == KindPart
}

// SavedLink records that a user bookmarked a vehicle or spare part. The _id is
// derived from the (user, kind, entity) triple so saving is an idempotent upsert.
type SavedLink struct {
	ID      string           `json:"_id" bson:"_id"`
	Details SavedLinkDetails `json:"savedLink" bson:"savedLink"`
}

// SavedLinkDetails holds the inner saved link structure
type SavedLinkDetails struct {
	UserID   string     `json:"userId" bson:"userId"`
	Kind     EntityKind `json:"kind" bson:"kind"`
	EntityID string     `json:"entityId" bson:"entityId"`
	SavedAt  time.Time  `json:"savedAt" bson:"savedAt"`
}

// SavedLinkID builds the deterministic id of a saved link
func SavedLinkID(userID string, kind EntityKind, entityID string) string {
	return userID + ":" + string(kind) + ":" + entityID
}
