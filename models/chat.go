package models

import "time"

// AdminSenderID is the sender id used for replies from the back office
const AdminSenderID = "admin"

// ChatMessage holds the structure for the chat_messages collection in mongo.
// OwnerID names the user whose private thread the message belongs to.
type ChatMessage struct {
	ID      string             `json:"_id" bson:"_id"`
	Details ChatMessageDetails `json:"message" bson:"message"`
}

// ChatMessageDetails holds the inner chat message structure
type ChatMessageDetails struct {
	OwnerID    string       `json:"ownerId" bson:"ownerId"`
	SenderID   string       `json:"senderId" bson:"senderId"`
	SenderName string       `json:"senderName" bson:"senderName"`
	Text       string       `json:"text" bson:"text"`
	Read       bool         `json:"read" bson:"read"`
	Item       *ItemContext `json:"item,omitempty" bson:"item,omitempty"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
}

// ItemContext is the catalog entity a chat message is asking about
type ItemContext struct {
	Kind  EntityKind `json:"kind" bson:"kind"`
	ID    string     `json:"id" bson:"id"`
	Title string     `json:"title" bson:"title"`
	Price float64    `json:"price" bson:"price"`
	Image string     `json:"image,omitempty" bson:"image,omitempty"`
}
