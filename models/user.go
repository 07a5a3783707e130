package models

import (
	"strings"
	"time"
)

// Role values stored on the user profile
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
	Version int32       `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	FirstName   string    `json:"firstName" bson:"firstName"`
	LastName    string    `json:"lastName" bson:"lastName"`
	DisplayName string    `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Email       string    `json:"email" bson:"email"`
	Phone       string    `json:"phone" bson:"phone"`
	Role        string    `json:"role" bson:"role"`
	Password    string    `json:"-" bson:"password"`
	Language    string    `json:"language,omitempty" bson:"language,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsAdmin reports whether the profile grants back-office access
func (u UserDetails) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName prefers "first last", then the display name, then the local part of the email
func (u UserDetails) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if n := strings.TrimSpace(u.DisplayName); n != "" {
		return n
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return strings.TrimSpace(u.Email)
}
