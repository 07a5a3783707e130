package databases

//go generate: mockery --name SavedLinkDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoe-motors/storefront-api/models"
)

const savedLinkName = "saved_links"

// SavedLinkDatabase contains the methods to use with the saved link database
type SavedLinkDatabase interface {
	Find(ctx context.Context, userID string, kind models.EntityKind) ([]models.SavedLink, error)
	Save(ctx context.Context, link models.SavedLink) error
	Remove(ctx context.Context, id string) error
}

type savedLinkDatabase struct {
	db DatabaseHelper
}

// NewSavedLinkDatabase initializes a new instance of saved link database with the provided db connection
func NewSavedLinkDatabase(db DatabaseHelper) SavedLinkDatabase {
	return &savedLinkDatabase{
		db: db,
	}
}

func (c *savedLinkDatabase) Find(ctx context.Context, userID string, kind models.EntityKind) ([]models.SavedLink, error) {
	filter := bson.M{"savedLink.userId": userID, "savedLink.kind": kind}
	return findAll[models.SavedLink](ctx, c.db.Collection(savedLinkName), filter, newestFirst("savedLink.savedAt"))
}

// Save upserts the link so saving an already saved entity is a no-op
func (c *savedLinkDatabase) Save(ctx context.Context, link models.SavedLink) error {
	_, err := c.db.Collection(savedLinkName).UpdateOne(ctx,
		bson.M{"_id": link.ID},
		bson.M{"$set": bson.M{"savedLink": link.Details}},
		options.Update().SetUpsert(true))
	return err
}

// Remove deletes the link. Removing a link that does not exist is not an error.
func (c *savedLinkDatabase) Remove(ctx context.Context, id string) error {
	_, err := c.db.Collection(savedLinkName).DeleteOne(ctx, bson.M{"_id": id})
	return err
}
