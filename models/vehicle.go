package models

import "time"

// Vehicle holds the structure for the vehicle collection in mongo
type Vehicle struct {
	ID      string         `json:"_id" bson:"_id"`
	Details VehicleDetails `json:"vehicle" bson:"vehicle"`
	Version int32          `json:"__v" bson:"__v"`
}

// VehicleDetails holds the structure for the inner vehicle structure as
// defined in the vehicle collection in mongo
type VehicleDetails struct {
	Name          string      `json:"name" bson:"name"`
	Make          string      `json:"make" bson:"make"`
	Model         string      `json:"model" bson:"model"`
	Year          int         `json:"year" bson:"year"`
	Trim          string      `json:"trim,omitempty" bson:"trim,omitempty"`
	BodyStyle     string      `json:"bodyStyle" bson:"bodyStyle"`
	Mileage       int         `json:"mileage" bson:"mileage"`
	Engine        string      `json:"engine" bson:"engine"`
	Transmission  string      `json:"transmission" bson:"transmission"`
	Drivetrain    string      `json:"drivetrain" bson:"drivetrain"`
	FuelType      string      `json:"fuelType" bson:"fuelType"`
	FuelEconomy   FuelEconomy `json:"fuelEconomy" bson:"fuelEconomy"`
	ExteriorColor string      `json:"exteriorColor" bson:"exteriorColor"`
	InteriorColor string      `json:"interiorColor" bson:"interiorColor"`
	Doors         int         `json:"doors" bson:"doors"`
	Passengers    int         `json:"passengers" bson:"passengers"`
	VIN           string      `json:"vin" bson:"vin"`
	StockNumber   string      `json:"stockNumber" bson:"stockNumber"`
	Price         float64     `json:"price" bson:"price"`
	Condition     string      `json:"condition" bson:"condition"`
	Sold          bool        `json:"sold" bson:"sold"`
	IsTradeIn     bool        `json:"isTradeIn" bson:"isTradeIn"`
	Images        []string    `json:"images" bson:"images"`
	VideoURL      string      `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
	Description   string      `json:"description" bson:"description"`
	Features      []string    `json:"features" bson:"features"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// FuelEconomy is expressed in miles per gallon
type FuelEconomy struct {
	Highway int `json:"hwy" bson:"hwy"`
	City    int `json:"city" bson:"city"`
}
