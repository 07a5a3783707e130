// Package catalog fetches filtered vehicle and spare part collections.
package catalog

import (
	"context"
	"fmt"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/models"
)

// Error keys surfaced by the feeds
const (
	VehiclesLoadError = "errors.vehicles.load"
	PartsLoadError    = "errors.parts.load"
)

// Vehicles runs the two-stage vehicle query
type Vehicles struct {
	DB databases.VehicleDatabase
}

// Fetch returns the vehicles matching f, newest first
func (v Vehicles) Fetch(ctx context.Context, f VehicleFilters) ([]models.Vehicle, error) {
	items, err := v.DB.Find(ctx, f.ServerFilter())
	if err != nil {
		return nil, fmt.Errorf("fetching vehicles: %w", err)
	}
	return listing.Filter(items, f.ClientFilter()), nil
}

// Parts runs the two-stage spare part query
type Parts struct {
	DB databases.SparePartDatabase
}

// Fetch returns the spare parts matching f, newest first
func (p Parts) Fetch(ctx context.Context, f PartFilters) ([]models.SparePart, error) {
	items, err := p.DB.Find(ctx, f.ServerFilter())
	if err != nil {
		return nil, fmt.Errorf("fetching spare parts: %w", err)
	}
	return listing.Filter(items, f.ClientFilter()), nil
}

// VehicleOptions are the dropdown values derived from a loaded vehicle list
type VehicleOptions struct {
	Models []string `json:"models"`
	Years  []int    `json:"years"`
}

// VehicleOptionsOf derives options from exactly the vehicles passed in
func VehicleOptionsOf(items []models.Vehicle) VehicleOptions {
	return VehicleOptions{
		Models: listing.Distinct(items, func(v models.Vehicle) string { return v.Details.Name }),
		Years:  listing.Distinct(items, func(v models.Vehicle) int { return v.Details.Year }),
	}
}

// PartOptions are the dropdown values derived from a loaded spare part list
type PartOptions struct {
	Categories []string `json:"categories"`
	Brands     []string `json:"brands"`
}

// PartOptionsOf derives options from exactly the parts passed in
func PartOptionsOf(items []models.SparePart) PartOptions {
	return PartOptions{
		Categories: listing.Distinct(items, func(p models.SparePart) string { return p.Details.Category }),
		Brands:     listing.Distinct(items, func(p models.SparePart) string { return p.Details.Brand }),
	}
}
