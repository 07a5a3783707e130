package models

import "time"

// SubmissionType discriminates the two car submission flows
type SubmissionType string

// SubmissionType values
const (
	SubmissionRegular SubmissionType = "regular"
	SubmissionTradeIn SubmissionType = "trade-in"
)

// SubmissionStatus values
const (
	SubmissionPending  = "pending"
	SubmissionPromoted = "promoted"
)

// CarSubmission holds the structure for the car_submissions collection in mongo
type CarSubmission struct {
	ID      string            `json:"_id" bson:"_id"`
	Details SubmissionDetails `json:"submission" bson:"submission"`
	Version int32             `json:"__v" bson:"__v"`
}

// SubmissionDetails holds the inner car submission structure
type SubmissionDetails struct {
	UserID string `json:"userId" bson:"userId"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email" bson:"email"`
	Phone  string `json:"phone" bson:"phone"`

	CarMake      string   `json:"carMake" bson:"carMake"`
	CarModel     string   `json:"carModel" bson:"carModel"`
	CarYear      int      `json:"carYear" bson:"carYear"`
	Mileage      int      `json:"mileage" bson:"mileage"`
	Condition    string   `json:"condition" bson:"condition"`
	VIN          string   `json:"vin" bson:"vin"`
	Price        float64  `json:"price" bson:"price"`
	Body         string   `json:"body" bson:"body"`
	Transmission string   `json:"transmission" bson:"transmission"`
	Engine       string   `json:"engine" bson:"engine"`
	Exterior     string   `json:"exterior" bson:"exterior"`
	Interior     string   `json:"interior" bson:"interior"`
	HwyMpg       int      `json:"hwyMpg" bson:"hwyMpg"`
	CityMpg      int      `json:"cityMpg" bson:"cityMpg"`
	Description  string   `json:"description" bson:"description"`
	Images       []string `json:"images" bson:"images"`

	SourcePage     string         `json:"sourcePage" bson:"sourcePage"`
	SelectedCarID  string         `json:"selectedCarId" bson:"selectedCarId"`
	SubmissionType SubmissionType `json:"submissionType" bson:"submissionType"`
	Status         string         `json:"status" bson:"status"`
	Read           bool           `json:"read" bson:"read"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
}
