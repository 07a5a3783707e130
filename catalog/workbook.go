package catalog

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zoe-motors/storefront-api/models"
)

// Worksheet names of the inventory downloads
const (
	VehicleSheet = "Vehicles"
	PartSheet    = "Spare Parts"
)

// VehicleWorkbook writes the vehicle table as an Excel workbook. The last
// row carries the report totals.
func VehicleWorkbook(w io.Writer, items []models.Vehicle) error {
	header := []interface{}{"Name", "Make", "Model", "Year", "VIN", "Stock Number", "Condition", "Mileage", "Price", "Status"}
	rows := make([][]interface{}, 0, len(items)+1)
	for _, v := range items {
		d := v.Details
		status := "Available"
		if d.Sold {
			status = "Sold"
		}
		rows = append(rows, []interface{}{d.Name, d.Make, d.Model, d.Year, d.VIN, d.StockNumber, d.Condition, d.Mileage, d.Price, status})
	}
	r := VehicleReportOf(items)
	rows = append(rows, []interface{}{"Total", "", "", "", "", "", "", "", r.TotalValue, ""})
	return writeWorkbook(w, VehicleSheet, header, rows)
}

// PartWorkbook writes the spare part table as an Excel workbook. Value is
// price times stock; the last row carries the report totals.
func PartWorkbook(w io.Writer, items []models.SparePart) error {
	header := []interface{}{"Name", "Brand", "Category", "Part Number", "Condition", "Price", "Stock", "Value"}
	rows := make([][]interface{}, 0, len(items)+1)
	for _, p := range items {
		d := p.Details
		rows = append(rows, []interface{}{d.Name, d.Brand, d.Category, d.PartNumber, d.Condition, d.Price, d.Stock, d.Price * float64(d.Stock)})
	}
	r := PartReportOf(items)
	rows = append(rows, []interface{}{"Total", "", "", "", "", "", "", r.TotalValue})
	return writeWorkbook(w, PartSheet, header, rows)
}

func writeWorkbook(w io.Writer, sheet string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	// header and totals
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, len(rows)+1, len(rows)+1, bold); err != nil {
		return err
	}
	return f.Write(w)
}
