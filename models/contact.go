package models

import "time"

// ContactMessage holds the structure for the contact_messages collection in mongo
type ContactMessage struct {
	ID      string         `json:"_id" bson:"_id"`
	Details ContactDetails `json:"contact" bson:"contact"`
}

// ContactDetails holds the inner contact message structure
type ContactDetails struct {
	UserID    string    `json:"userId" bson:"userId"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone" bson:"phone"`
	Subject   string    `json:"subject" bson:"subject"`
	Message   string    `json:"message" bson:"message"`
	Read      bool      `json:"read" bson:"read"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
