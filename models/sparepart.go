package models

import "time"

// SparePart holds the structure for the spare_parts collection in mongo
type SparePart struct {
	ID      string           `json:"_id" bson:"_id"`
	Details SparePartDetails `json:"sparePart" bson:"sparePart"`
	Version int32            `json:"__v" bson:"__v"`
}

// SparePartDetails holds the inner spare part structure
type SparePartDetails struct {
	Name          string    `json:"name" bson:"name"`
	Brand         string    `json:"brand" bson:"brand"`
	Category      string    `json:"category" bson:"category"`
	PartNumber    string    `json:"partNumber" bson:"partNumber"`
	Condition     string    `json:"condition" bson:"condition"`
	Warranty      string    `json:"warranty" bson:"warranty"`
	Price         float64   `json:"price" bson:"price"`
	Stock         int       `json:"stock" bson:"stock"`
	Compatibility []string  `json:"compatibility" bson:"compatibility"`
	Images        []string  `json:"images" bson:"images"`
	Description   string    `json:"description" bson:"description"`
	Features      []string  `json:"features" bson:"features"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Available reports whether the part can be inquired about
func (p SparePartDetails) Available() bool {
	return p.Stock > 0
}
