package catalog

import (
	"strings"

	"github.com/zoe-motors/storefront-api/format"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/models"
)

// Back office stock status filter values
const (
	StatusAll        = "all"
	StatusSold       = "sold"
	StatusInStock    = "in_stock"
	StatusOutOfStock = "out_of_stock"
)

// InventoryFilter is the back office vehicle table filter: a status and a
// case-insensitive search over name and VIN
func InventoryFilter(status, query string) func(models.Vehicle) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(v models.Vehicle) bool {
		if q != "" &&
			!strings.Contains(strings.ToLower(v.Details.Name), q) &&
			!strings.Contains(strings.ToLower(v.Details.VIN), q) {
			return false
		}
		switch status {
		case StatusSold:
			return v.Details.Sold
		case StatusInStock:
			return !v.Details.Sold
		}
		return true
	}
}

// PartStockFilter is the back office spare part table filter: a status and a
// case-insensitive search over name and part number
func PartStockFilter(status, query string) func(models.SparePart) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(p models.SparePart) bool {
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Details.Name), q) &&
			!strings.Contains(strings.ToLower(p.Details.PartNumber), q) {
			return false
		}
		switch status {
		case StatusInStock:
			return p.Details.Stock > 0
		case StatusOutOfStock:
			return p.Details.Stock == 0
		}
		return true
	}
}

// VehicleReport summarizes a vehicle table
type VehicleReport struct {
	TotalVehicles     int     `json:"totalVehicles"`
	AvailableVehicles int     `json:"availableVehicles"`
	SoldVehicles      int     `json:"soldVehicles"`
	TotalValue        float64 `json:"totalValue"`
	TotalValueText    string  `json:"totalValueText"`
}

// VehicleReportOf reports on exactly the vehicles passed in
func VehicleReportOf(items []models.Vehicle) VehicleReport {
	r := VehicleReport{TotalVehicles: len(items)}
	for _, v := range items {
		if v.Details.Sold {
			r.SoldVehicles++
		} else {
			r.AvailableVehicles++
		}
		r.TotalValue += v.Details.Price
	}
	r.TotalValueText = format.Currency(r.TotalValue)
	return r
}

// PartReport summarizes a spare part table; value is weighted by stock
type PartReport struct {
	TotalParts     int     `json:"totalParts"`
	InStock        int     `json:"inStock"`
	OutOfStock     int     `json:"outOfStock"`
	TotalValue     float64 `json:"totalValue"`
	TotalValueText string  `json:"totalValueText"`
}

// PartReportOf reports on exactly the parts passed in
func PartReportOf(items []models.SparePart) PartReport {
	r := PartReport{TotalParts: len(items)}
	for _, p := range items {
		if p.Details.Stock > 0 {
			r.InStock++
		} else {
			r.OutOfStock++
		}
		r.TotalValue += p.Details.Price * float64(p.Details.Stock)
	}
	r.TotalValueText = format.Currency(r.TotalValue)
	return r
}

// AdminVehicles applies the back office filter and windows the result
func AdminVehicles(items []models.Vehicle, status, query string, page int) listing.Page[models.Vehicle] {
	return listing.Paginate(listing.Filter(items, InventoryFilter(status, query)), page, listing.AdminPageSize)
}
