package databases

//go generate: mockery --name VehicleDatabase

import (
	"context"

	"github.com/zoe-motors/storefront-api/models"
)

const vehicleName = "vehicles"

// VehicleDatabase contains the methods to use with the vehicle database
type VehicleDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error)
	Find(ctx context.Context, filter interface{}) ([]models.Vehicle, error)
	InsertOne(ctx context.Context, v models.Vehicle) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type vehicleDatabase struct {
	db DatabaseHelper
}

// NewVehicleDatabase initializes a new instance of vehicle database with the provided db connection
func NewVehicleDatabase(db DatabaseHelper) VehicleDatabase {
	return &vehicleDatabase{
		db: db,
	}
}

func (c *vehicleDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error) {
	return findOne[models.Vehicle](ctx, c.db.Collection(vehicleName), filter)
}

// Find returns the matching vehicles, newest first
func (c *vehicleDatabase) Find(ctx context.Context, filter interface{}) ([]models.Vehicle, error) {
	return findAll[models.Vehicle](ctx, c.db.Collection(vehicleName), filter, newestFirst("vehicle.createdAt"))
}

func (c *vehicleDatabase) InsertOne(ctx context.Context, v models.Vehicle) error {
	return insertOne(ctx, c.db.Collection(vehicleName), v)
}

func (c *vehicleDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	return updateOne(ctx, c.db.Collection(vehicleName), filter, update)
}

func (c *vehicleDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return deleteOne(ctx, c.db.Collection(vehicleName), filter)
}

func (c *vehicleDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(vehicleName).CountDocuments(ctx, filter)
}
