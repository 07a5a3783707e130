package catalog_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zoe-motors/storefront-api/catalog"
	"github.com/zoe-motors/storefront-api/listing"
	"github.com/zoe-motors/storefront-api/models"
)

func stockVehicles() []models.Vehicle {
	return []models.Vehicle{
		{ID: "1", Details: models.VehicleDetails{Name: "Toyota Corolla", VIN: "JT1", Price: 1000000}},
		{ID: "2", Details: models.VehicleDetails{Name: "Hyundai Tucson", VIN: "KM8", Price: 2500000, Sold: true}},
		{ID: "3", Details: models.VehicleDetails{Name: "Toyota Hilux", VIN: "AHT", Price: 3000000}},
	}
}

func TestInventoryFilter(t *testing.T) {
	items := stockVehicles()
	assert.Len(t, listing.Filter(items, catalog.InventoryFilter(catalog.StatusAll, "")), 3)
	assert.Len(t, listing.Filter(items, catalog.InventoryFilter(catalog.StatusSold, "")), 1)
	assert.Len(t, listing.Filter(items, catalog.InventoryFilter(catalog.StatusInStock, "toyota")), 2)
	assert.Len(t, listing.Filter(items, catalog.InventoryFilter("", "km8")), 1)
}

func TestVehicleReportOf(t *testing.T) {
	r := catalog.VehicleReportOf(stockVehicles())
	assert.Equal(t, 3, r.TotalVehicles)
	assert.Equal(t, 2, r.AvailableVehicles)
	assert.Equal(t, 1, r.SoldVehicles)
	assert.Equal(t, 6500000.0, r.TotalValue)
	assert.Equal(t, "ETB 6,500,000", r.TotalValueText)
}

func TestPartReportOfWeighsByStock(t *testing.T) {
	parts := []models.SparePart{
		{Details: models.SparePartDetails{Name: "Brake pad", PartNumber: "BP-1", Price: 1500, Stock: 4}},
		{Details: models.SparePartDetails{Name: "Oil filter", PartNumber: "OF-2", Price: 300, Stock: 0}},
	}
	r := catalog.PartReportOf(parts)
	assert.Equal(t, 1, r.InStock)
	assert.Equal(t, 1, r.OutOfStock)
	assert.Equal(t, 6000.0, r.TotalValue)

	assert.Len(t, listing.Filter(parts, catalog.PartStockFilter(catalog.StatusOutOfStock, "")), 1)
	assert.Len(t, listing.Filter(parts, catalog.PartStockFilter(catalog.StatusAll, "bp-")), 1)
}

func TestAdminVehiclesUsesAdminPageSize(t *testing.T) {
	var items []models.Vehicle
	for i := 0; i < 23; i++ {
		items = append(items, models.Vehicle{Details: models.VehicleDetails{Name: "Car"}})
	}
	p := catalog.AdminVehicles(items, catalog.StatusAll, "", 3)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 3)
}

func TestVehicleWorkbook(t *testing.T) {
	items := []models.Vehicle{
		{ID: "v1", Details: models.VehicleDetails{Name: "Corolla LE", Make: "Toyota", Model: "Corolla", Year: 2019, Price: 1500000}},
		{ID: "v2", Details: models.VehicleDetails{Name: "Vitz", Make: "Toyota", Model: "Vitz", Year: 2012, Price: 900000, Sold: true}},
	}
	var buf bytes.Buffer
	require.NoError(t, catalog.VehicleWorkbook(&buf, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(catalog.VehicleSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, []string{"Corolla LE", "Toyota", "Corolla", "2019"}, rows[1][:4])
	assert.Equal(t, "Sold", rows[2][9])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "2400000", rows[3][8])
}

func TestPartWorkbook(t *testing.T) {
	items := []models.SparePart{
		{ID: "p1", Details: models.SparePartDetails{Name: "Brake pad", Price: 2500, Stock: 4}},
		{ID: "p2", Details: models.SparePartDetails{Name: "Filter", Price: 800, Stock: 0}},
	}
	var buf bytes.Buffer
	require.NoError(t, catalog.PartWorkbook(&buf, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(catalog.PartSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "10000", rows[1][7])
	assert.Equal(t, "10000", rows[3][7])
}
