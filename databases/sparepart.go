package databases

//go generate: mockery --name SparePartDatabase

import (
	"context"

	"github.com/zoe-motors/storefront-api/models"
)

const sparePartName = "spare_parts"

// SparePartDatabase contains the methods to use with the spare part database
type SparePartDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.SparePart, error)
	Find(ctx context.Context, filter interface{}) ([]models.SparePart, error)
	InsertOne(ctx context.Context, p models.SparePart) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
}

type sparePartDatabase struct {
	db DatabaseHelper
}

// NewSparePartDatabase initializes a new instance of spare part database with the provided db connection
func NewSparePartDatabase(db DatabaseHelper) SparePartDatabase {
	return &sparePartDatabase{
		db: db,
	}
}

func (c *sparePartDatabase) FindOne(ctx context.Context, filter interface{}) (*models.SparePart, error) {
	return findOne[models.SparePart](ctx, c.db.Collection(sparePartName), filter)
}

func (c *sparePartDatabase) Find(ctx context.Context, filter interface{}) ([]models.SparePart, error) {
	return findAll[models.SparePart](ctx, c.db.Collection(sparePartName), filter, newestFirst("sparePart.createdAt"))
}

func (c *sparePartDatabase) InsertOne(ctx context.Context, p models.SparePart) error {
	return insertOne(ctx, c.db.Collection(sparePartName), p)
}

func (c *sparePartDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, c.db.Collection(sparePartName), filter, update)
}

func (c *sparePartDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return deleteOne(ctx, c.db.Collection(sparePartName), filter)
}
