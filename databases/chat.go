package databases

//go generate: mockery --name ChatDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/models"
)

const chatName = "chat_messages"

// ChatDatabase contains the methods to use with the chat message database.
// Every message belongs to exactly one user thread (message.ownerId).
type ChatDatabase interface {
	Find(ctx context.Context, filter interface{}) ([]models.ChatMessage, error)
	InsertOne(ctx context.Context, m models.ChatMessage) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type chatDatabase struct {
	db DatabaseHelper
}

// NewChatDatabase initializes a new instance of chat message database with the provided db connection
func NewChatDatabase(db DatabaseHelper) ChatDatabase {
	return &chatDatabase{
		db: db,
	}
}

// ThreadFilter selects every message of one user's thread
func ThreadFilter(ownerID string) bson.M {
	return bson.M{"message.ownerId": ownerID}
}

// UnreadFilter selects the unread messages of one user's thread
func UnreadFilter(ownerID string) bson.M {
	return bson.M{"message.ownerId": ownerID, "message.read": false}
}

func (c *chatDatabase) Find(ctx context.Context, filter interface{}) ([]models.ChatMessage, error) {
	return findAll[models.ChatMessage](ctx, c.db.Collection(chatName), filter, newestFirst("message.createdAt"))
}

func (c *chatDatabase) InsertOne(ctx context.Context, m models.ChatMessage) error {
	return insertOne(ctx, c.db.Collection(chatName), m)
}

func (c *chatDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, c.db.Collection(chatName), filter, update)
}

func (c *chatDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return deleteOne(ctx, c.db.Collection(chatName), filter)
}

func (c *chatDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(chatName).CountDocuments(ctx, filter)
}
