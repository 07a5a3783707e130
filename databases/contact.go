package databases

//go generate: mockery --name ContactDatabase

import (
	"context"

	"github.com/zoe-motors/storefront-api/models"
)

const contactName = "contact_messages"

// ContactDatabase contains the methods to use with the contact message database
type ContactDatabase interface {
	Find(ctx context.Context, filter interface{}) ([]models.ContactMessage, error)
	InsertOne(ctx context.Context, m models.ContactMessage) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type contactDatabase struct {
	db DatabaseHelper
}

// NewContactDatabase initializes a new instance of contact message database with the provided db connection
func NewContactDatabase(db DatabaseHelper) ContactDatabase {
	return &contactDatabase{
		db: db,
	}
}

func (c *contactDatabase) Find(ctx context.Context, filter interface{}) ([]models.ContactMessage, error) {
	return findAll[models.ContactMessage](ctx, c.db.Collection(contactName), filter, newestFirst("contact.createdAt"))
}

func (c *contactDatabase) InsertOne(ctx context.Context, m models.ContactMessage) error {
	return insertOne(ctx, c.db.Collection(contactName), m)
}

func (c *contactDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, c.db.Collection(contactName), filter, update)
}

func (c *contactDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return deleteOne(ctx, c.db.Collection(contactName), filter)
}

func (c *contactDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(contactName).CountDocuments(ctx, filter)
}
