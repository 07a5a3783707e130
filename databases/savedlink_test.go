package databases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/models"
)

func TestSavedLinkDatabase_SaveUpserts(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	link := models.SavedLink{
		ID: models.SavedLinkID("u1", models.KindVehicle, "v1"),
		Details: models.SavedLinkDetails{
			UserID: "u1", Kind: models.KindVehicle, EntityID: "v1", SavedAt: time.Now(),
		},
	}

	collectionHelper.On("UpdateOne", mock.Anything, bson.M{"_id": "u1:vehicle:v1"}, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{UpsertedCount: 1}, nil)
	dbHelper.On("Collection", "saved_links").Return(collectionHelper)

	db := databases.NewSavedLinkDatabase(dbHelper)
	assert.NoError(t, db.Save(context.Background(), link))

	call := collectionHelper.Calls[0]
	opts := call.Arguments.Get(3)
	assert.NotNil(t, opts)
}

func TestSavedLinkDatabase_RemoveMissingIsNotAnError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("DeleteOne", mock.Anything, bson.M{"_id": "u1:part:p1"}).
		Return(&mongo.DeleteResult{DeletedCount: 0}, nil)
	dbHelper.On("Collection", "saved_links").Return(collectionHelper)

	db := databases.NewSavedLinkDatabase(dbHelper)
	assert.NoError(t, db.Remove(context.Background(), "u1:part:p1"))
}

func TestSavedLinkDatabase_FindFiltersByUserAndKind(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.SavedLink)
		*arg = []models.SavedLink{{ID: "u1:part:p1", Details: models.SavedLinkDetails{EntityID: "p1"}}}
	})
	collectionHelper.On("Find", mock.Anything, bson.M{"savedLink.userId": "u1", "savedLink.kind": models.KindPart}, mock.Anything).
		Return(cursorHelper, nil)
	dbHelper.On("Collection", "saved_links").Return(collectionHelper)

	db := databases.NewSavedLinkDatabase(dbHelper)
	links, err := db.Find(context.Background(), "u1", models.KindPart)
	assert.NoError(t, err)
	assert.Equal(t, "p1", links[0].Details.EntityID)
}
